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
	cons "github.com/you/flight-scheduling/services/timeslot-service/internal/consumer"
	"github.com/you/flight-scheduling/services/timeslot-service/internal/handlers"
	"github.com/you/flight-scheduling/services/timeslot-service/internal/projection"
	"github.com/you/flight-scheduling/services/timeslot-service/internal/service"
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

	shutdown := obs.InitTracer("timeslot-service")
	defer func() { _ = shutdown(context.Background()) }()

	// event log + read model share the service's database
	gdb := db.Open(cfg.PGTimeSlotDSN)
	store := eventstore.New(gdb)
	must(0, store.Migrate())
	proj := projection.NewProjector(gdb)
	must(0, proj.Migrate())

	// publisher for timeslot.* events
	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.TimeSlotExchange))
	defer pub.Close()

	svc := service.NewTimeSlotSvc(store, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// consumer for reservation intents (wants-slot / slot-cancelled)
	resCons := must(mq.NewConsumer(cfg.RabbitURL, cfg.ReservationExchange, cfg.TimeSlotQueue, cons.Bindings))
	defer resCons.Close()
	rc := cons.NewReservationConsumer(svc, resCons)
	go func() {
		if err := rc.Run(ctx); err != nil {
			log.Fatalf("[timeslot] consumer: %v", err)
		}
	}()
	log.Println("[timeslot] consumer started (reservation intents)")

	// projection worker on our own events, separate queue
	projCons := must(mq.NewConsumer(cfg.RabbitURL, cfg.TimeSlotExchange, cfg.ProjectionQueue, projection.Bindings))
	defer projCons.Close()
	pw := projection.NewWorker(proj, projCons)
	go func() {
		if err := pw.Run(ctx); err != nil {
			log.Fatalf("[timeslot] projection: %v", err)
		}
	}()
	log.Println("[timeslot] projection worker started")

	// HTTP API
	r := gin.Default()
	h := handlers.NewTimeSlotHandler(svc, proj)
	v1 := r.Group("/v1")
	v1.GET("/slots/:id", h.Get)
	v1.GET("/participants/:id/slots", h.SlotsByParticipant)
	secured := v1.Group("")
	secured.Use(auth.JWTAuth())
	{
		secured.PUT("/slots/:id/availability", h.MakeAvailable)
		secured.DELETE("/slots/:id/availability", h.MakeUnavailable)
	}
	go func() {
		log.Println("[timeslot] http listening on", cfg.TimeSlotHTTPAddr)
		log.Fatal(r.Run(cfg.TimeSlotHTTPAddr))
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	log.Println("[timeslot] stopped")
}
