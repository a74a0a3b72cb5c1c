package config

import (
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// DB
	PGReservationDSN string `envconfig:"PG_RESERVATION_DSN" required:"true"`
	PGTimeSlotDSN    string `envconfig:"PG_TIMESLOT_DSN" required:"true"`
	// JWT
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	// RabbitMQ
	RabbitURL           string `envconfig:"RABBIT_URL" required:"true"`
	ReservationExchange string `envconfig:"RESERVATION_EXCHANGE" default:"reservation.exchange"`
	TimeSlotExchange    string `envconfig:"TIMESLOT_EXCHANGE" default:"timeslot.exchange"`
	ReservationQueue    string `envconfig:"RESERVATION_SLOT_QUEUE" default:"reservation.slot.q"`
	TimeSlotQueue       string `envconfig:"TIMESLOT_RESERVATION_QUEUE" default:"timeslot.reservation.q"`
	ProjectionQueue     string `envconfig:"TIMESLOT_PROJECTION_QUEUE" default:"timeslot.projection.q"`
	// Network
	ReservationHTTPAddr string `envconfig:"RESERVATION_HTTP_ADDR" default:":8081"`
	TimeSlotHTTPAddr    string `envconfig:"TIMESLOT_HTTP_ADDR" default:":8082"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
