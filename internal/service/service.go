package service

import (
	"context"

	"github.com/ds124wfegd/parkingbooker/internal/entity"
)

// AccountService регистрация и аутентификация пользователей
type AccountService interface {
	Register(ctx context.Context, req *RegisterRequest) (*entity.Account, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	ParseToken(token string) (*Claims, error)
	GetAccount(ctx context.Context, id string) (*entity.Account, error)
}

// VenueService каталог парковок, доступность и цены
type VenueService interface {
	GetAllVenues(ctx context.Context) ([]*entity.Venue, error)
	GetVenue(ctx context.Context, id string) (*entity.Venue, error)
	GetVenueOccupancy(ctx context.Context, id string) (*entity.VenueOccupancy, error)

	// Availability returns free slot numbers; an unknown venue yields an empty list.
	Availability(ctx context.Context, venueID, date, startTime, endTime string) ([]int, error)
	Quote(ctx context.Context, venueID, startTime, endTime string) (*Quote, error)
	TimeSlots() []string
}

// BookingService определяет интерфейс для операций с бронированиями
type BookingService interface {
	// Основные операции
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*entity.Booking, error)
	GetBooking(ctx context.Context, id string) (*entity.Booking, error)
	GetUserBookings(ctx context.Context, userID string, filter entity.BookingFilter) ([]*entity.Booking, error)

	// Жизненный цикл
	AssignSlot(ctx context.Context, id string) (*entity.Booking, error)
	CompleteBooking(ctx context.Context, id string) (*entity.Booking, error)
	CancelBooking(ctx context.Context, id, reason string) (*entity.Booking, error)
	CloseOverdueBookings(ctx context.Context) (int, error)

	// QR пропуск
	IssueQR(ctx context.Context, id string) (*QRPass, error)
	RenderQRImage(ctx context.Context, id string) ([]byte, error)
	RenderPassPDF(ctx context.Context, id string) ([]byte, error)
	VerifyQR(ctx context.Context, payload string) (*entity.Booking, error)
	ScanCheckIn(ctx context.Context, payload string) (*entity.Booking, error)

	// Административные операции
	ListBookings(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error)
	GetBookingStats(ctx context.Context, venueID string) (*entity.BookingStats, error)

	// WaitForEvents blocks until queued events and alerts are delivered.
	WaitForEvents()
	// Close drains the event queue; call it after the last booking change.
	Close()
}

// EventPublisher отправляет события жизненного цикла брони во внешний лог
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event *entity.BookingEvent) error
}

// Alerter уведомляет администраторов
type Alerter interface {
	Alert(ctx context.Context, text string) error
}
