package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"skyline/internal/client"
	"skyline/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const servicesCacheTTL = 10 * time.Minute

const usage = `usage: orders [-api URL] [-redis ADDR] <command> [args]

commands:
  list [-filter TEXT]          show bookings, newest first
  confirm|complete|cancel ID   change a booking's status
  book -name N -email E -date YYYY-MM-DD [-service S] [-notes T]
  services                     show the service catalogue
`

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		logger.Error().Err(err).Msg("orders")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	apiURL := fs.String("api", envOr("SKYLINE_API_URL", "http://localhost:3000"), "booking API base URL")
	redisAddr := fs.String("redis", os.Getenv("REDIS_ADDRESS"), "optional Redis address for caching the service catalogue")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return flag.ErrHelp
	}

	c := client.New(*apiURL)
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer rdb.Close()
		c.UseRedisCache(rdb, servicesCacheTTL)
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "list":
		return runList(ctx, c, rest, out)
	case "book":
		return runBook(ctx, c, rest, out)
	case "services":
		return runServices(ctx, c, out)
	}

	action, ok := client.ParseAction(cmd)
	if !ok {
		return flag.ErrHelp
	}
	if len(rest) != 1 {
		return fmt.Errorf("%s needs exactly one booking id", cmd)
	}
	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid booking id %q", rest[0])
	}

	m := client.NewOrderManager(c)
	if err := m.Apply(ctx, id, action); err != nil {
		return err
	}
	fmt.Fprintf(out, "booking %d is now %s\n", id, action.TargetStatus())
	return printBookings(out, m.Bookings())
}

func runList(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	filter := fs.String("filter", "", "case-insensitive match on name or service")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m := client.NewOrderManager(c)
	if err := m.Refresh(ctx); err != nil {
		return err
	}
	return printBookings(out, m.Visible(*filter))
}

func runBook(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	form := client.NewBookingForm("")

	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&form.Fields.Name, "name", "", "client name")
	fs.StringVar(&form.Fields.Email, "email", "", "client email")
	fs.StringVar(&form.Fields.Service, "service", form.Fields.Service, "service label")
	fs.StringVar(&form.Fields.Date, "date", "", "preferred date, YYYY-MM-DD")
	fs.StringVar(&form.Fields.Notes, "notes", "", "free-form notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := form.Submit(ctx, c); err != nil {
		return err
	}
	fmt.Fprintf(out, "booking %d created (%s)\n", form.BookingID(), form.State())
	return nil
}

func runServices(ctx context.Context, c *client.Client, out io.Writer) error {
	services, err := c.ListServices(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL\tLABEL (SQ)")
	for _, s := range services {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Key, s.Label, s.LabelSq)
	}
	return tw.Flush()
}

func printBookings(out io.Writer, bookings []models.Booking) error {
	if len(bookings) == 0 {
		_, err := fmt.Fprintln(out, client.EmptyMessage)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tNAME\tSERVICE\tDATE\tEMAIL\tACTIONS")
	for _, b := range bookings {
		actions := make([]string, 0, 2)
		for _, a := range client.Actions(b) {
			actions = append(actions, string(a))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Status, b.Name, b.Service, b.Date, b.Email, strings.Join(actions, ","))
	}
	return tw.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
