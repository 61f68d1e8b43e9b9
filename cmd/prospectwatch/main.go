package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"prospectwatch-client/application/stores"
	"prospectwatch-client/domain/records"
	"prospectwatch-client/infrastructure/config"
	"prospectwatch-client/infrastructure/di"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage: prospectwatch <command> [args]

commands:
  login <email> [password]         sign in (password read from stdin if omitted)
  logout                           sign out
  status                           show the current session
  companies                        list tracked companies
  track <name> [domain]            start tracking a company
  untrack <id>                     stop tracking a company
  priority <id> on|off             toggle the priority flag
  settings <id> <frequency> [tag]  change update frequency and tags
  feed [page]                      show recent company updates
  mark-read <id> [id...]           mark updates as read
  org                              show organization, members and plan
  watch                            keep the session fresh until interrupted
`

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ok := run(ctx, container, os.Args[1], os.Args[2:])
	if !ok {
		os.Exit(1)
	}
}

func run(ctx context.Context, c *di.Container, command string, args []string) bool {
	switch command {
	case "login":
		return cmdLogin(ctx, c, args)
	case "logout":
		c.Session.Logout(ctx)
		fmt.Println("signed out")
		return true
	case "status":
		return cmdStatus(c)
	case "companies":
		return cmdCompanies(ctx, c)
	case "track":
		return cmdTrack(ctx, c, args)
	case "untrack":
		return requireArgs(args, 1, func() bool {
			return report(c.Companies.Err, c.Companies.Untrack(ctx, args[0]), "untracked")
		})
	case "priority":
		return cmdPriority(ctx, c, args)
	case "settings":
		return cmdSettings(ctx, c, args)
	case "feed":
		return cmdFeed(ctx, c, args)
	case "mark-read":
		return requireArgs(args, 1, func() bool {
			return report(c.Feed.Err, c.Feed.MarkRead(ctx, args...), "marked read")
		})
	case "org":
		return cmdOrg(ctx, c)
	case "watch":
		return cmdWatch(ctx, c)
	default:
		fmt.Fprint(os.Stderr, usage)
		return false
	}
}

func cmdLogin(ctx context.Context, c *di.Container, args []string) bool {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: prospectwatch login <email> [password]")
		return false
	}
	email := args[0]
	password := ""
	if len(args) > 1 {
		password = args[1]
	} else {
		fmt.Fprint(os.Stderr, "password: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			password = strings.TrimSpace(scanner.Text())
		}
	}

	if !c.Session.Login(ctx, email, password) {
		snap := c.Session.Snapshot()
		fmt.Fprintf(os.Stderr, "login failed: %s\n", snap.LastError)
		return false
	}
	snap := c.Session.Snapshot()
	fmt.Printf("signed in as %s\n", snap.Identity.Email)
	return true
}

func cmdStatus(c *di.Container) bool {
	snap := c.Session.Snapshot()
	if !snap.Authenticated {
		fmt.Println("not signed in")
		return true
	}
	fmt.Printf("signed in as %s (%s)\n", snap.Identity.Email, snap.Identity.DisplayName)
	if snap.Identity.OrganizationID != "" {
		fmt.Printf("organization: %s\n", snap.Identity.OrganizationID)
	}
	return true
}

func cmdCompanies(ctx context.Context, c *di.Container) bool {
	if !c.Companies.Fetch(ctx) {
		message, _ := c.Companies.Err()
		fmt.Fprintf(os.Stderr, "fetch failed: %s\n", message)
		return false
	}
	companies := c.Companies.Companies()
	if len(companies) == 0 {
		fmt.Println("no tracked companies")
		return true
	}
	for _, company := range companies {
		marker := " "
		if company.IsPriority {
			marker = "*"
		}
		fmt.Printf("%s %-12s %-10s %s\n", marker, company.ID, company.UpdateFrequency, records.Describe(company))
	}
	return true
}

func cmdTrack(ctx context.Context, c *di.Container, args []string) bool {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: prospectwatch track <name> [domain]")
		return false
	}
	domain := ""
	if len(args) > 1 {
		domain = args[1]
	}
	return report(c.Companies.Err, c.Companies.Track(ctx, args[0], domain), "tracking "+args[0])
}

func cmdPriority(ctx context.Context, c *di.Container, args []string) bool {
	if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
		fmt.Fprintln(os.Stderr, "usage: prospectwatch priority <id> on|off")
		return false
	}
	return report(c.Companies.Err, c.Companies.SetPriority(ctx, args[0], args[1] == "on"), "priority updated")
}

func cmdSettings(ctx context.Context, c *di.Container, args []string) bool {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: prospectwatch settings <id> <frequency> [tag...]")
		return false
	}
	settings := stores.CompanySettings{
		UpdateFrequency: records.UpdateFrequency(args[1]),
		Tags:            args[2:],
	}
	return report(c.Companies.Err, c.Companies.UpdateSettings(ctx, args[0], settings), "settings updated")
}

func cmdFeed(ctx context.Context, c *di.Container, args []string) bool {
	page := 1
	if len(args) > 0 {
		fmt.Sscanf(args[0], "%d", &page)
	}
	if !c.Feed.Fetch(ctx, page) {
		message, _ := c.Feed.Err()
		fmt.Fprintf(os.Stderr, "fetch failed: %s\n", message)
		return false
	}
	updates := c.Feed.Updates()
	if len(updates) == 0 {
		fmt.Println("no updates")
		return true
	}
	for _, update := range updates {
		read := " "
		if !update.IsRead {
			read = "•"
		}
		fmt.Printf("%s %-12s [%s] %s\n", read, update.ID, update.Importance, update.Headline)
	}
	current, total, hasNext := c.Feed.Meta()
	fmt.Printf("page %d, %d total, %d unread", current, total, c.Feed.UnreadCount())
	if hasNext {
		fmt.Print(" (more available)")
	}
	fmt.Println()
	return true
}

func cmdOrg(ctx context.Context, c *di.Container) bool {
	if !c.Org.Fetch(ctx) {
		fmt.Fprintln(os.Stderr, "organization data unavailable")
		return false
	}
	org := c.Org.Organization()
	fmt.Printf("%s (%s), %d members%s\n", org.Name, org.Domain, org.MemberCount, demoSuffix(c, "organization"))
	for _, member := range c.Org.Members() {
		fmt.Printf("  %-24s %-10s %s\n", member.Email, member.Role, member.DisplayName)
	}
	plan := c.Org.Plan()
	fmt.Printf("plan: %s, %d/%d seats, limit %d companies%s\n",
		plan.Name, plan.SeatsUsed, plan.Seats, plan.TrackingLimit, demoSuffix(c, "plan"))
	return true
}

func cmdWatch(ctx context.Context, c *di.Container) bool {
	if !c.Session.Authenticated() {
		fmt.Fprintln(os.Stderr, "not signed in")
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	c.Logger.Info("Watching session", zap.Duration("interval", c.Config.SessionCheckInterval))
	c.Watchdog.Poke()
	if err := c.Watchdog.Run(ctx); err != nil {
		c.Logger.Error("Watchdog stopped", zap.Error(err))
		return false
	}
	return true
}

func demoSuffix(c *di.Container, section string) string {
	if c.Org.IsDemo(section) {
		return " [demo data]"
	}
	return ""
}

func requireArgs(args []string, n int, fn func() bool) bool {
	if len(args) < n {
		fmt.Fprint(os.Stderr, usage)
		return false
	}
	return fn()
}

func report(errFn func() (string, string), ok bool, success string) bool {
	if !ok {
		message, _ := errFn()
		fmt.Fprintf(os.Stderr, "failed: %s\n", message)
		return false
	}
	fmt.Println(success)
	return true
}
