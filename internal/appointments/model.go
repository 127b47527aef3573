package appointments

import "time"

// Patient is a clinic patient record.
type Patient struct {
	ID        string
	ShortID   string
	FullName  string
	Phone     string
	Notes     string
	CreatedAt time.Time
}

// Doctor is a treating doctor; Label is the display name shown on the page.
type Doctor struct {
	ID    string
	Label string
	Color string
}

// Appointment is one scheduled visit. PatientName/PatientPhone are
// denormalized so walk-in appointments without a patient record still
// render.
type Appointment struct {
	ID           string
	PatientID    string
	PatientName  string
	PatientPhone string
	PatientShort string
	DoctorID     string
	DoctorLabel  string
	Title        string
	Notes        string
	StartsAt     time.Time
	EndsAt       time.Time
	Status       Status
	Room         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
