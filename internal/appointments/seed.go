package appointments

import (
	"encoding/json"
	"fmt"
	"html/template"
	"time"
)

// SeedAppointment is the page-seed shape for one appointment. Field names
// match what the appointments page script expects.
type SeedAppointment struct {
	ID          string `json:"id"`
	PatientName string `json:"patientName"`
	FileNumber  string `json:"fileNumber"`
	PhoneNumber string `json:"phoneNumber"`
	Doctor      string `json:"doctor"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

// SeedPatient is the page-seed shape for one patient.
type SeedPatient struct {
	FileNumber  string `json:"fileNumber"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	ID          string `json:"id"`
}

// PageSeed carries the three independent JSON blobs injected into the
// appointments page as inert script tags. The client synchronizer never
// reads these; they only seed the initial render.
type PageSeed struct {
	AppointmentsJSON template.JS
	PatientsJSON     template.JS
	DoctorsJSON      template.JS
}

// BuildPageSeed formats appointments, patients, and doctors into the three
// serialized payloads. Doctors are a flat label list with "All Doctors"
// prepended as the filter default.
func BuildPageSeed(appts []Appointment, patients []Patient, doctors []Doctor) (*PageSeed, error) {
	seedAppts := make([]SeedAppointment, 0, len(appts))
	for _, appt := range appts {
		doctor := appt.DoctorLabel
		if doctor == "" {
			doctor = appt.DoctorID
		}
		seedAppts = append(seedAppts, SeedAppointment{
			ID:          appt.ID,
			PatientName: appt.PatientName,
			FileNumber:  appt.PatientShort,
			PhoneNumber: appt.PatientPhone,
			Doctor:      doctor,
			StartTime:   appt.StartsAt.Format(time.RFC3339),
			EndTime:     appt.EndsAt.Format(time.RFC3339),
			Status:      appt.Status.DisplayLabel(),
			Reason:      appt.Title,
		})
	}

	seedPatients := make([]SeedPatient, 0, len(patients))
	for _, p := range patients {
		seedPatients = append(seedPatients, SeedPatient{
			FileNumber:  p.ShortID,
			Name:        p.FullName,
			PhoneNumber: p.Phone,
			ID:          p.ID,
		})
	}

	seedDoctors := make([]string, 0, len(doctors)+1)
	seedDoctors = append(seedDoctors, "All Doctors")
	for _, d := range doctors {
		seedDoctors = append(seedDoctors, d.Label)
	}

	apptsJSON, err := json.Marshal(seedAppts)
	if err != nil {
		return nil, fmt.Errorf("appointments: marshal appointment seed: %w", err)
	}
	patientsJSON, err := json.Marshal(seedPatients)
	if err != nil {
		return nil, fmt.Errorf("appointments: marshal patient seed: %w", err)
	}
	doctorsJSON, err := json.Marshal(seedDoctors)
	if err != nil {
		return nil, fmt.Errorf("appointments: marshal doctor seed: %w", err)
	}

	return &PageSeed{
		AppointmentsJSON: template.JS(apptsJSON),
		PatientsJSON:     template.JS(patientsJSON),
		DoctorsJSON:      template.JS(doctorsJSON),
	}, nil
}
