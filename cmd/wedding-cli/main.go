package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"wedding-site/internal/api"
	"wedding-site/internal/auth"
	"wedding-site/internal/config"
	"wedding-site/internal/handler"
	"wedding-site/internal/models"
	"wedding-site/internal/storage"
	"wedding-site/internal/whatsapp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize storage
	backend, err := storage.Open(cfg.StoreBackend, cfg.DataDir)
	if errors.Is(err, storage.ErrCorrupt) {
		logger.Warn().Err(err).Msg("Stored session is unreadable, starting signed out")
	} else if err != nil {
		logger.Fatal().Err(err).Msg("Error initializing storage")
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	client := api.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
	site := handler.NewSite(client, storage.New(backend), &handler.Config{
		WeddingDate: cfg.WeddingDate,
		BrideName:   cfg.BrideName,
		GroomName:   cfg.GroomName,
	}, logger)

	if cfg.WhatsAppEnabled {
		whatsappService, err := whatsapp.NewService(ctx, &whatsapp.Config{
			DataDir:      cfg.WhatsAppDataDir,
			NotifyNumber: cfg.WhatsAppNotifyNumber,
			BrideName:    cfg.BrideName,
			GroomName:    cfg.GroomName,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error initializing WhatsApp service")
		}
		fmt.Println("Connecting to WhatsApp...")
		if err := whatsappService.Connect(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Error connecting to WhatsApp")
		}
		defer whatsappService.Disconnect()
		site.SetNotifier(whatsappService)
	}

	printBanner(site)
	site.Bootstrap(ctx)

	done := make(chan struct{})
	go func() {
		startCLI(ctx, site)
		close(done)
	}()

	select {
	case <-ctx.Done():
		fmt.Println("\n\nShutting down...")
	case <-done:
	}
	fmt.Println("Goodbye! 👋")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func printBanner(site *handler.Site) {
	bride, groom := site.Couple()
	fmt.Printf("💍 %s & %s\n", bride, groom)
	fmt.Println(strings.Repeat("=", 30))

	left := site.Countdown(time.Now())
	if left == 0 {
		fmt.Println("Today is the day!")
		return
	}
	days := int(left.Hours()) / 24
	fmt.Printf("%dd %02dh %02dm to go\n", days, int(left.Hours())%24, int(left.Minutes())%60)
}

func startCLI(ctx context.Context, site *handler.Site) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		printStatus(site)
		fmt.Println("\nCommands:")
		fmt.Println("  1. Sign in")
		fmt.Println("  2. Sign out")
		fmt.Println("  3. Send RSVP")
		fmt.Println("  4. View my RSVP")
		fmt.Println("  5. Enter admin")
		fmt.Println("  6. View RSVPs (admin)")
		fmt.Println("  7. Approve or reject RSVP (admin)")
		fmt.Println("  8. Exit admin")
		fmt.Println("  9. Quit")
		fmt.Print("\nEnter command (1-9): ")

		if !scanner.Scan() {
			return
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			signIn(ctx, scanner, site)
		case "2":
			site.Logout()
			fmt.Println("Signed out.")
		case "3":
			sendRSVP(ctx, scanner, site)
		case "4":
			viewMyRSVP(ctx, site)
		case "5":
			enterAdmin(ctx, scanner, site)
		case "6":
			viewRSVPs(ctx, scanner, site)
		case "7":
			moderate(ctx, scanner, site)
		case "8":
			site.ExitAdmin()
			fmt.Println("Left admin mode.")
		case "9":
			return
		default:
			fmt.Println("Invalid command. Please try again.")
		}
	}
}

func prompt(scanner *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}

func printStatus(site *handler.Site) {
	fmt.Println()
	if guest, ok := site.Guest(); ok {
		fmt.Printf("Signed in as %s <%s>", guest.Profile.Name, guest.Profile.Email)
	} else {
		fmt.Print("Not signed in")
	}
	if site.IsAdmin() {
		fmt.Print(" [admin]")
	}
	fmt.Println()
}

func signIn(ctx context.Context, scanner *bufio.Scanner, site *handler.Site) {
	name, ok := prompt(scanner, "Name: ")
	if !ok {
		return
	}
	email, ok := prompt(scanner, "Email: ")
	if !ok {
		return
	}
	password, ok := prompt(scanner, "Password: ")
	if !ok {
		return
	}

	res, err := site.Login(ctx, models.Credentials{Name: name, Email: email, Password: password})
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	if res.Mode == auth.ModeRegister {
		fmt.Printf("✅ Welcome, %s! Your account was created.\n", res.Profile.Name)
	} else {
		fmt.Printf("✅ Welcome back, %s!\n", res.Profile.Name)
	}
}

func sendRSVP(ctx context.Context, scanner *bufio.Scanner, site *handler.Site) {
	name, ok := prompt(scanner, "Name on the RSVP: ")
	if !ok {
		return
	}
	guestsText, ok := prompt(scanner, "Number of people: ")
	if !ok {
		return
	}
	guests, err := strconv.Atoi(guestsText)
	if err != nil || guests < 1 {
		fmt.Println("Please enter at least 1 person.")
		return
	}
	message, ok := prompt(scanner, "Message for the couple (optional): ")
	if !ok {
		return
	}
	dietary, ok := prompt(scanner, "Dietary restrictions (optional): ")
	if !ok {
		return
	}

	created, err := site.SubmitRSVP(ctx, models.RSVPRequest{
		Name:    name,
		Guests:  guests,
		Message: message,
		Dietary: dietary,
	})
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Printf("✅ RSVP sent! Status: %s\n", created.Status)
}

func viewMyRSVP(ctx context.Context, site *handler.Site) {
	rsvp, ok := site.RefreshMyRSVP(ctx)
	if !ok {
		rsvp, ok = site.MyRSVP()
	}
	if !ok {
		fmt.Println("You have not sent an RSVP yet. Once you do, its status will show here.")
		return
	}

	printRSVP(rsvp)
	switch rsvp.Status {
	case models.RSVPPending:
		fmt.Println("The couple will confirm soon.")
	case models.RSVPApproved:
		fmt.Println("🎉 You're confirmed. See you there!")
	case models.RSVPRejected:
		fmt.Println("Unfortunately this RSVP could not be confirmed.")
	}
}

func enterAdmin(ctx context.Context, scanner *bufio.Scanner, site *handler.Site) {
	code, ok := prompt(scanner, "Admin code: ")
	if !ok {
		return
	}
	if !site.EnterAdmin(ctx, code) {
		fmt.Println("❌ Invalid admin code.")
		return
	}
	fmt.Printf("✅ Admin mode. %d RSVPs loaded.\n", len(site.RSVPs()))
}

func viewRSVPs(ctx context.Context, scanner *bufio.Scanner, site *handler.Site) {
	if !site.IsAdmin() {
		fmt.Println("Enter admin mode first.")
		return
	}
	site.FetchRSVPs(ctx)

	choice, ok := prompt(scanner, "Filter (1. All, 2. Pending, 3. Approved, 4. Rejected): ")
	if !ok {
		return
	}

	var rsvps []models.RSVP
	switch choice {
	case "2":
		rsvps = site.RSVPsByStatus(models.RSVPPending)
	case "3":
		rsvps = site.RSVPsByStatus(models.RSVPApproved)
	case "4":
		rsvps = site.RSVPsByStatus(models.RSVPRejected)
	default:
		rsvps = site.RSVPs()
	}

	s := site.Summary()
	fmt.Printf("\n📋 %d RSVPs: %d pending, %d approved (%d people), %d rejected\n",
		s.Total, s.Pending, s.Approved, s.ApprovedGuests, s.Rejected)
	fmt.Println(strings.Repeat("-", 60))
	for _, rsvp := range rsvps {
		printRSVP(rsvp)
		fmt.Println(strings.Repeat("-", 60))
	}
}

func moderate(ctx context.Context, scanner *bufio.Scanner, site *handler.Site) {
	id, ok := prompt(scanner, "RSVP id: ")
	if !ok {
		return
	}
	choice, ok := prompt(scanner, "1. Approve, 2. Reject: ")
	if !ok {
		return
	}

	status := models.RSVPApproved
	if choice == "2" {
		status = models.RSVPRejected
	}

	updated, err := site.UpdateRSVPStatus(ctx, id, status)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Printf("✅ %s is now %s\n", updated.Name, updated.Status)
}

func printRSVP(rsvp models.RSVP) {
	fmt.Printf("ID: %s\n", rsvp.ID)
	fmt.Printf("Name: %s\n", rsvp.Name)
	fmt.Printf("People: %d\n", rsvp.Guests)
	fmt.Printf("Status: %s\n", rsvp.Status)
	if rsvp.Message != "" {
		fmt.Printf("Message: %s\n", rsvp.Message)
	}
	if rsvp.Dietary != "" {
		fmt.Printf("Dietary: %s\n", rsvp.Dietary)
	}
}
