package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("patient not found")

// Patient is the registry record the booking engine reads FirstVisit from
// and writes visit history back to. The surrogate id is the stable key;
// phone is the unique natural lookup key the front desk types in.
type Patient struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Age        int       `json:"age,omitempty"`
	Gender     string    `json:"gender,omitempty"`
	Address    string    `json:"address,omitempty"`
	FirstVisit bool      `json:"first_visit"`
	VisitDates []string  `json:"visit_dates,omitempty"` // ordered, "2006-01-02"
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store contains all registry interactions the front desk needs.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Patient, error)
	FindByPhone(ctx context.Context, phone string) (*Patient, error)
	List(ctx context.Context) ([]Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error

	// MarkReturning flips FirstVisit off and appends the visit date.
	// Called by the coordinator when a visit completes.
	MarkReturning(ctx context.Context, id uuid.UUID, visitDate string) error
}
