package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// ContactRepo handles all contact-related database operations.
type ContactRepo struct {
	db *sql.DB
}

const contactColumns = `id, first_name, last_name, email, phone, company, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (*models.Contact, error) {
	c := &models.Contact{}
	if err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Company,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateContact inserts a contact and returns it with its timestamps
func (r *ContactRepo) CreateContact(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (first_name, last_name, email, phone, company)
		 VALUES (?, ?, ?, ?, ?)`,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Company,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting contact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return r.GetContact(ctx, int(id))
}

// GetContact retrieves a single contact
func (r *ContactRepo) GetContact(ctx context.Context, id int) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// UpdateContact overwrites the editable fields of a contact
func (r *ContactRepo) UpdateContact(ctx context.Context, c *models.Contact) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE contacts
		 SET first_name = ?, last_name = ?, email = ?, phone = ?, company = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Company, c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating contact %d: %w", c.ID, err)
	}
	return requireAffected(result)
}

// DeleteContact removes a contact. Linked opportunities and tasks keep existing
// with their contact cleared.
func (r *ContactRepo) DeleteContact(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting contact %d: %w", id, err)
	}
	return requireAffected(result)
}

// SearchContacts returns one page of contacts matching query on name, email or
// company, plus the total number of matches
func (r *ContactRepo) SearchContacts(ctx context.Context, query string, page, pageSize int) ([]*models.Contact, int, error) {
	pattern := likePattern(query)
	const filter = `WHERE (? = '' OR first_name LIKE ? ESCAPE '\' OR last_name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\' OR company LIKE ? ESCAPE '\')`

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts `+filter,
		pattern, pattern, pattern, pattern, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting contacts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts `+filter+`
		 ORDER BY last_name, first_name, id
		 LIMIT ? OFFSET ?`,
		pattern, pattern, pattern, pattern, pattern, pageSize, pageOffset(page, pageSize),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]*models.Contact, 0, pageSize)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating contact rows: %w", err)
	}

	return contacts, total, nil
}

// CountContacts returns the number of stored contacts
func (r *ContactRepo) CountContacts(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
