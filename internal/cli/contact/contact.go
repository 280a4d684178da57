package contact

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/dealflow/internal/cli"
	"github.com/thenoetrevino/dealflow/internal/models"
	contactservice "github.com/thenoetrevino/dealflow/internal/services/contact"
)

// Cmd returns the contact command group
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Manage contacts",
	}
	cmd.AddCommand(CreateCmd(), ListCmd(), ShowCmd(), UpdateCmd(), DeleteCmd())
	return cmd
}

// CreateCmd returns the contact create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new contact",
		Long: `Create a new contact.

Examples:
  dealflow contact create --first Ada --last Lovelace --email ada@example.com
  CONTACT_ID=$(dealflow contact create --first Ada --quiet)
`,
		Args: cobra.NoArgs,
		RunE: cli.RunE(runCreate),
	}
	cmd.Flags().String("first", "", "First name (required)")
	_ = cmd.MarkFlagRequired("first")
	cmd.Flags().String("last", "", "Last name")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("phone", "", "Phone number")
	cmd.Flags().String("company", "", "Company")
	cli.AddOutputFlags(cmd)
	return cmd
}

func runCreate(cmd *cobra.Command, _ []string, c *cli.CLI, f *cli.OutputFormatter) error {
	req := contactservice.CreateContactRequest{}
	req.FirstName, _ = cmd.Flags().GetString("first")
	req.LastName, _ = cmd.Flags().GetString("last")
	req.Email, _ = cmd.Flags().GetString("email")
	req.Phone, _ = cmd.Flags().GetString("phone")
	req.Company, _ = cmd.Flags().GetString("company")

	created, err := c.App.ContactService.CreateContact(cmd.Context(), req)
	if err != nil {
		return f.Fail(0, "CONTACT_CREATE_ERROR", err, "")
	}
	return f.Print(created, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Created contact %d: %s\n", created.ID, created.FullName())
		return err
	})
}

// ListCmd returns the contact list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List and search contacts",
		Args:  cobra.NoArgs,
		RunE:  cli.RunE(runList),
	}
	cmd.Flags().StringP("query", "q", "", "Filter by name, email or company")
	cmd.Flags().Int("page", 1, "Page number (1-based)")
	cmd.Flags().Int("page-size", models.DefaultPageSize, "Contacts per page")
	cli.AddOutputFlags(cmd)
	return cmd
}

func runList(cmd *cobra.Command, _ []string, c *cli.CLI, f *cli.OutputFormatter) error {
	query, _ := cmd.Flags().GetString("query")
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	result, err := c.App.ContactService.ListContacts(cmd.Context(), query, page, pageSize)
	if err != nil {
		return f.Fail(0, "CONTACT_LIST_ERROR", err, "")
	}

	ids := make([]int, len(result.Items))
	rows := make([][]string, len(result.Items))
	for i, ct := range result.Items {
		ids[i] = ct.ID
		rows[i] = []string{strconv.Itoa(ct.ID), ct.FullName(), ct.Email, ct.Company}
	}
	if err := f.List(result, ids, []string{"ID", "NAME", "EMAIL", "COMPANY"}, rows); err != nil {
		return err
	}
	f.Message("Page %d, %d of %d contacts", result.Page, len(result.Items), result.Total)
	return nil
}

// ShowCmd returns the contact show subcommand
func ShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one contact",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.RunE(runShow),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runShow(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	id, err := cli.ParseID("contact", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	ct, err := c.App.ContactService.GetContact(cmd.Context(), id)
	if err != nil {
		return f.Fail(0, "CONTACT_NOT_FOUND", err, "Use 'dealflow contact list' to see available contacts")
	}
	return f.Print(ct, func(w io.Writer) error {
		return printContact(w, ct)
	})
}

func printContact(w io.Writer, ct *models.Contact) error {
	_, err := fmt.Fprintf(w, "Contact #%d: %s\n", ct.ID, ct.FullName())
	if err != nil {
		return err
	}
	for _, field := range [][2]string{{"Email", ct.Email}, {"Phone", ct.Phone}, {"Company", ct.Company}} {
		if field[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %-8s %s\n", field[0]+":", field[1]); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "  Created: %s\n", ct.CreatedAt.Format("2006-01-02 15:04"))
	return err
}

// UpdateCmd returns the contact update subcommand. Only flags that are set
// change the contact.
func UpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a contact",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.RunE(runUpdate),
	}
	cmd.Flags().String("first", "", "First name")
	cmd.Flags().String("last", "", "Last name")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("phone", "", "Phone number")
	cmd.Flags().String("company", "", "Company")
	cli.AddOutputFlags(cmd)
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	id, err := cli.ParseID("contact", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}

	req := contactservice.UpdateContactRequest{ID: id}
	changed := false
	for flag, dst := range map[string]**string{
		"first":   &req.FirstName,
		"last":    &req.LastName,
		"email":   &req.Email,
		"phone":   &req.Phone,
		"company": &req.Company,
	} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			*dst = &v
			changed = true
		}
	}
	if !changed {
		return f.Fail(cli.ExitUsage, "NO_CHANGES", fmt.Errorf("nothing to update"),
			"Pass at least one of --first, --last, --email, --phone, --company")
	}

	updated, err := c.App.ContactService.UpdateContact(cmd.Context(), req)
	if err != nil {
		return f.Fail(0, "CONTACT_UPDATE_ERROR", err, "")
	}
	return f.Print(updated, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Updated contact %d\n", updated.ID)
		return err
	})
}

// DeleteCmd returns the contact delete subcommand
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contact",
		Long:  "Delete a contact. Opportunities and tasks linked to it are kept and unlinked.",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.RunE(runDelete),
	}
	cli.AddOutputFlags(cmd)
	return cmd
}

func runDelete(cmd *cobra.Command, args []string, c *cli.CLI, f *cli.OutputFormatter) error {
	id, err := cli.ParseID("contact", args[0])
	if err != nil {
		return f.Fail(cli.ExitUsage, "INVALID_ID", err, "")
	}
	if err := c.App.ContactService.DeleteContact(cmd.Context(), id); err != nil {
		return f.Fail(0, "CONTACT_DELETE_ERROR", err, "")
	}
	return f.Print(map[string]any{"id": id, "deleted": true}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Deleted contact %d\n", id)
		return err
	})
}
