package inquiry

import "time"

type Kind string

const (
	KindContact      Kind = "contact"
	KindConsultation Kind = "consultation"
)

func (k Kind) Valid() bool { return k == KindContact || k == KindConsultation }

// Status is the delivery state of the notification email.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Inquiry is a contact message or a consultation request from the site.
type Inquiry struct {
	ID            string     `bson:"_id" json:"id"`
	Kind          Kind       `bson:"kind" json:"kind"`
	Name          string     `bson:"name" json:"name"`
	Email         string     `bson:"email" json:"email"`
	Phone         string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Subject       string     `bson:"subject,omitempty" json:"subject,omitempty"`
	PracticeArea  string     `bson:"practiceArea,omitempty" json:"practiceArea,omitempty"`
	PreferredDate *time.Time `bson:"preferredDate,omitempty" json:"preferredDate,omitempty"`
	Message       string     `bson:"message,omitempty" json:"message,omitempty"`
	Status        Status     `bson:"status" json:"status"`
	DeliveryError string     `bson:"deliveryError,omitempty" json:"deliveryError,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
}
