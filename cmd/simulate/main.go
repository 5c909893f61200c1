package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	flag "github.com/spf13/pflag"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/auth"
	grpcDelivery "github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/grpc"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	pkgGrpc "github.com/vogiaan1904/ticketbottle-boxoffice/pkg/grpc"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/util"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	addr         = flag.String("addr", "localhost:50056", "BoxOffice gRPC address")
	secret       = flag.String("jwt-secret", "jwt-secret", "Secret the server signs access tokens with")
	eventID      = flag.StringP("event", "e", "", "Event ID (required)")
	categories   = flag.StringSliceP("category", "c", nil, "Ticket category IDs to buy from (required)")
	numUsers     = flag.IntP("users", "u", 300, "Number of users to create")
	maxQuantity  = flag.Int("max-quantity", 4, "Largest number of tickets a user asks for")
	leaveRate    = flag.Float64("leave-rate", 0.1, "Probability a user leaves the line before their turn (0.0-1.0)")
	abandonRate  = flag.Float64("abandon-rate", 0.1, "Probability an admitted user never buys (0.0-1.0)")
	pollInterval = flag.Duration("poll-interval", 500*time.Millisecond, "Status polling interval")
	joinRate     = flag.Duration("join-rate", 10*time.Millisecond, "Time between user joins")
	seed         = flag.Uint64("seed", 0, "Seed for fake user data; 0 picks one")
)

type stats struct {
	joined    atomic.Int64
	left      atomic.Int64
	abandoned atomic.Int64
	bought    atomic.Int64
	tickets   atomic.Int64
	soldOut   atomic.Int64
	expired   atomic.Int64
	failed    atomic.Int64
}

func main() {
	flag.Parse()

	if *eventID == "" || len(*categories) == 0 {
		fmt.Println("Error: --event and --category flags are required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, closeConn, err := pkgGrpc.NewBoxOfficeClient(*addr)
	if err != nil {
		fmt.Printf("Failed to connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer closeConn()

	faker := gofakeit.New(*seed)
	issuer := auth.NewIssuer(*secret)

	fmt.Printf("🚀 Sending %d users to event %s...\n", *numUsers, *eventID)
	start := time.Now()

	var (
		st stats
		wg sync.WaitGroup
	)

	for i := 0; i < *numUsers; i++ {
		uid := fmt.Sprintf("sim-%s", faker.Username())
		token, err := issuer.IssueAccessToken(uid, 2*time.Hour)
		if err != nil {
			fmt.Printf("❌ Failed to issue token for %s: %v\n", uid, err)
			continue
		}

		u := &user{
			id:      uid,
			ctx:     metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token),
			payment: fakePayment(faker),
			client:  client,
			st:      &st,
		}
		wg.Go(u.run)

		if *joinRate > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(*joinRate):
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			fmt.Printf("\n⏱️  Completed in %v\n", time.Since(start).Round(time.Millisecond))
			printFinalStats(&st)
			return
		case <-ctx.Done():
			fmt.Println("\n\n🛑 Simulation stopped")
			<-done
			printFinalStats(&st)
			return
		case <-ticker.C:
			fmt.Printf("[%s] Joined: %d | Bought: %d | Left: %d | Sold out: %d\n",
				time.Now().Format("15:04:05"),
				st.joined.Load(),
				st.bought.Load(),
				st.left.Load(),
				st.soldOut.Load(),
			)
		}
	}
}

type user struct {
	id      string
	ctx     context.Context
	payment models.PaymentDetails
	client  *grpcDelivery.BoxOfficeClient
	st      *stats
}

func (u *user) run() {
	if _, err := u.client.JoinQueue(u.ctx, &grpcDelivery.JoinQueueRequest{EventID: *eventID}); err != nil {
		if u.ctx.Err() == nil {
			fmt.Printf("❌ %s could not join: %v\n", u.id, status.Convert(err).Message())
		}
		return
	}
	u.st.joined.Add(1)

	givesUp := rand.Float64() < *leaveRate

	ticker := time.NewTicker(*pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-u.ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := u.client.GetStatus(u.ctx, &grpcDelivery.GetStatusRequest{EventID: *eventID})
		if err != nil {
			return
		}

		switch models.AdmissionStatusKind(res.Status) {
		case models.AdmissionQueued:
			if givesUp && res.Rank > 1 {
				u.leave()
				u.st.left.Add(1)
				return
			}
		case models.AdmissionActive:
			if rand.Float64() < *abandonRate {
				u.leave()
				u.st.abandoned.Add(1)
				return
			}
			u.buy(res.ExpiresAt)
			return
		case models.AdmissionExpired:
			u.st.expired.Add(1)
			return
		default:
			return
		}
	}
}

func (u *user) leave() {
	_, _ = u.client.LeaveQueue(u.ctx, &grpcDelivery.LeaveQueueRequest{EventID: *eventID})
}

func (u *user) buy(expiresAt *time.Time) {
	cats := *categories
	req := &grpcDelivery.PurchaseRequest{
		EventID:    *eventID,
		CategoryID: cats[rand.IntN(len(cats))],
		Quantity:   1 + rand.IntN(*maxQuantity),
		Payment:    u.payment,
	}

	res, err := u.client.Purchase(u.ctx, req)
	switch status.Code(err) {
	case codes.OK:
		u.st.bought.Add(1)
		u.st.tickets.Add(int64(len(res.Seats)))
		until := "-"
		if expiresAt != nil {
			until = util.FormatDateTime(*expiresAt)
		}
		fmt.Printf("🎟️  %s bought %d x %s, seats %v (window until %s)\n", u.id, len(res.Seats), req.CategoryID, res.Seats, until)
	case codes.ResourceExhausted:
		u.st.soldOut.Add(1)
		u.leave()
	case codes.FailedPrecondition:
		u.st.expired.Add(1)
	default:
		u.st.failed.Add(1)
		u.leave()
	}
}

func fakePayment(f *gofakeit.Faker) models.PaymentDetails {
	card := f.CreditCard()
	month, year := 12, time.Now().Year()+2
	if exp, err := time.Parse("01/06", card.Exp); err == nil {
		month, year = int(exp.Month()), exp.Year()
	}
	addr := f.Address()

	return models.PaymentDetails{
		CardHolderName: f.Name(),
		CardNumber:     card.Number,
		CVV:            card.Cvv,
		ExpiryMonth:    month,
		ExpiryYear:     year,
		BillingAddress: addr.Address,
	}
}

func printFinalStats(st *stats) {
	fmt.Println("\n📊 Final Statistics:")
	fmt.Printf("   Joined:        %d\n", st.joined.Load())
	fmt.Printf("   Purchases:     %d (%d tickets)\n", st.bought.Load(), st.tickets.Load())
	fmt.Printf("   Left queue:    %d\n", st.left.Load())
	fmt.Printf("   Abandoned:     %d\n", st.abandoned.Load())
	fmt.Printf("   Sold out:      %d\n", st.soldOut.Load())
	fmt.Printf("   Expired:       %d\n", st.expired.Load())
	fmt.Printf("   Failed:        %d\n", st.failed.Load())
}
