// Command gripectl is the terminal client for the gripe complaint
// tracker. It holds the session token in ~/.gripe/session.json and
// attaches it to every call.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gripehq/gripe/apperr"
	"github.com/gripehq/gripe/client"
	"github.com/gripehq/gripe/db"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: gripectl [-server URL] <command> [args]

Commands:
  signup                     register a new account
  login                      authenticate and store a session
  logout                     revoke and discard the session
  profile                    show the current account
  list                       list complaints (admins see all)
  show <id>                  show one complaint
  create                     file a new complaint (interactive)
  update <id>                edit a complaint (interactive, blank keeps current)
  status <id> <status>       set status (admin only)
  delete <id>                delete a complaint`)
	os.Exit(2)
}

func main() {
	log.SetFlags(0)

	serverURL := flag.String("server", envOr("GRIPE_SERVER", "http://localhost:8080"), "gripe API base URL")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	sessionPath, err := client.DefaultSessionPath()
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	app := &app{
		api:         client.New(*serverURL),
		sessionPath: sessionPath,
		reader:      bufio.NewReader(os.Stdin),
	}

	ctx := context.Background()
	if err := app.run(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, apperr.ErrUnauthenticated) {
			// Session invalid: discard the stored token and ask the
			// user to authenticate again.
			_ = client.ClearSession(sessionPath)
		}
		log.Fatalf("error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type app struct {
	api         *client.Client
	sessionPath string
	reader      *bufio.Reader
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return a.signup(ctx)
	case "login":
		return a.login(ctx)
	case "logout":
		return a.logout(ctx)
	case "profile":
		return a.profile(ctx)
	case "list":
		return a.list(ctx)
	case "show":
		if len(args) != 1 {
			usage()
		}
		return a.show(ctx, args[0])
	case "create":
		return a.create(ctx)
	case "update":
		if len(args) != 1 {
			usage()
		}
		return a.update(ctx, args[0])
	case "status":
		if len(args) != 2 {
			usage()
		}
		return a.setStatus(ctx, args[0], args[1])
	case "delete":
		if len(args) != 1 {
			usage()
		}
		return a.delete(ctx, args[0])
	default:
		usage()
		return nil
	}
}

func (a *app) session() (*client.Session, error) {
	return client.LoadSession(a.sessionPath)
}

func (a *app) credentials() (string, string, error) {
	email, err := getSimpleText(a.reader, "Email")
	if err != nil {
		return "", "", err
	}
	password, err := getPassword()
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func (a *app) signup(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}

	session, err := a.api.Signup(ctx, email, password)
	if err != nil {
		return err
	}
	if err := client.SaveSession(a.sessionPath, session); err != nil {
		return err
	}

	fmt.Printf("Registered and logged in as %s\n", session.Email)
	return nil
}

func (a *app) login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}

	session, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := client.SaveSession(a.sessionPath, session); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (%s)\n", session.Email, session.Role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	if err := a.api.Logout(ctx, session); err != nil {
		// The server-side session may already be gone; the local token
		// is discarded either way.
		log.Printf("warning: %v", err)
	}
	if err := client.ClearSession(a.sessionPath); err != nil {
		return err
	}

	fmt.Println("Logged out")
	return nil
}

func (a *app) profile(ctx context.Context) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	account, err := a.api.Profile(ctx, session)
	if err != nil {
		return err
	}

	fmt.Printf("%s  role=%s  member since %s\n", account.Email, account.Role, account.CreatedAt.Format("2006-01-02"))
	return nil
}

func (a *app) list(ctx context.Context) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	complaints, err := a.api.ListComplaints(ctx, session)
	if err != nil {
		return err
	}

	if len(complaints) == 0 {
		fmt.Println("No complaints")
		return nil
	}
	for _, cp := range complaints {
		fmt.Printf("%s  [%-11s]  %-9s  %s\n", cp.ID, cp.Status, cp.Category, cp.Title)
	}
	return nil
}

func (a *app) show(ctx context.Context, id string) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	cp, err := a.api.GetComplaint(ctx, session, id)
	if err != nil {
		return err
	}

	printComplaint(cp)
	return nil
}

func (a *app) create(ctx context.Context) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	title, err := getSimpleText(a.reader, "Title")
	if err != nil {
		return err
	}
	description, err := getSimpleText(a.reader, "Description")
	if err != nil {
		return err
	}
	category, err := getSimpleText(a.reader, "Category (Technical/Billing/Service/Product/Other)")
	if err != nil {
		return err
	}

	cp, err := a.api.CreateComplaint(ctx, session, &db.CreateComplaintRequest{
		Title:       title,
		Description: description,
		Category:    category,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created complaint %s\n", cp.ID)
	return nil
}

func (a *app) update(ctx context.Context, id string) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	// Blank answers leave the field unchanged (partial update).
	patch := &db.UpdateComplaintRequest{}
	if v, err := getSimpleText(a.reader, "Title (blank to keep)"); err != nil {
		return err
	} else if v != "" {
		patch.Title = &v
	}
	if v, err := getSimpleText(a.reader, "Description (blank to keep)"); err != nil {
		return err
	} else if v != "" {
		patch.Description = &v
	}
	if v, err := getSimpleText(a.reader, "Category (blank to keep)"); err != nil {
		return err
	} else if v != "" {
		patch.Category = &v
	}

	cp, err := a.api.UpdateComplaint(ctx, session, id, patch)
	if err != nil {
		return err
	}

	printComplaint(cp)
	return nil
}

func (a *app) setStatus(ctx context.Context, id, status string) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	cp, err := a.api.UpdateComplaintStatus(ctx, session, id, status)
	if err != nil {
		return err
	}

	fmt.Printf("Complaint %s is now %s\n", cp.ID, cp.Status)
	return nil
}

func (a *app) delete(ctx context.Context, id string) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	if err := a.api.DeleteComplaint(ctx, session, id); err != nil {
		return err
	}

	fmt.Println("Complaint removed")
	return nil
}

func printComplaint(cp *db.Complaint) {
	fmt.Printf("ID:          %s\n", cp.ID)
	fmt.Printf("Title:       %s\n", cp.Title)
	fmt.Printf("Category:    %s\n", cp.Category)
	fmt.Printf("Status:      %s\n", cp.Status)
	if cp.OwnerEmail != "" {
		fmt.Printf("Owner:       %s\n", cp.OwnerEmail)
	}
	fmt.Printf("Created:     %s\n", cp.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Updated:     %s\n", cp.UpdatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("\n%s\n", cp.Description)
}
