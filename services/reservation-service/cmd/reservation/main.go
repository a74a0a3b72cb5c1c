package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/you/flight-scheduling/pkg/auth"
	"github.com/you/flight-scheduling/pkg/config"
	"github.com/you/flight-scheduling/pkg/db"
	"github.com/you/flight-scheduling/pkg/eventstore"
	"github.com/you/flight-scheduling/pkg/mq"
	"github.com/you/flight-scheduling/pkg/obs"
	cons "github.com/you/flight-scheduling/services/reservation-service/internal/consumer"
	"github.com/you/flight-scheduling/services/reservation-service/internal/handlers"
	"github.com/you/flight-scheduling/services/reservation-service/internal/service"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	_ = godotenv.Load()
	cfg := must(config.Load())

	shutdown := obs.InitTracer("reservation-service")
	defer func() { _ = shutdown(context.Background()) }()

	// event log
	gdb := db.Open(cfg.PGReservationDSN)
	store := eventstore.New(gdb)
	must(0, store.Migrate())

	// publisher for reservation.* events
	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.ReservationExchange))
	defer pub.Close()

	svc := service.NewReservationSvc(store, pub)

	// consumer for slot outcomes (timeslot.*.accepted / rejected)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slotCons := must(mq.NewConsumer(cfg.RabbitURL, cfg.TimeSlotExchange, cfg.ReservationQueue, cons.Bindings))
	defer slotCons.Close()
	sc := cons.NewSlotConsumer(svc, slotCons)
	go func() {
		if err := sc.Run(ctx); err != nil {
			log.Fatalf("[reservation] consumer: %v", err)
		}
	}()
	log.Println("[reservation] consumer started (timeslot outcomes)")

	// HTTP API
	r := gin.Default()
	h := handlers.NewReservationHandler(svc)
	v1 := r.Group("/v1")
	v1.GET("/reservations/:id", h.Get)
	secured := v1.Group("")
	secured.Use(auth.JWTAuth())
	{
		secured.POST("/reservations", h.Create)
		secured.POST("/reservations/:id/cancel", h.Cancel)
	}
	go func() {
		log.Println("[reservation] http listening on", cfg.ReservationHTTPAddr)
		log.Fatal(r.Run(cfg.ReservationHTTPAddr))
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	log.Println("[reservation] stopped")
}
