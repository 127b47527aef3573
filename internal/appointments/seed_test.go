package appointments

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildPageSeed(t *testing.T) {
	starts := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{
			ID:           "appt-1",
			PatientName:  "Jane Doe",
			PatientShort: "P-0001",
			PatientPhone: "+15551230000",
			DoctorLabel:  "Dr. Palmer",
			Title:        "Follow-up",
			StartsAt:     starts,
			EndsAt:       starts.Add(30 * time.Minute),
			Status:       StatusDone,
		},
		{
			ID:       "appt-2",
			DoctorID: "doc-2",
			StartsAt: starts.Add(time.Hour),
			EndsAt:   starts.Add(90 * time.Minute),
			Status:   StatusScheduled,
		},
	}
	patients := []Patient{{ID: "pat-1", ShortID: "P-0001", FullName: "Jane Doe", Phone: "+15551230000"}}
	doctors := []Doctor{{ID: "doc-1", Label: "Dr. Palmer"}}

	seed, err := BuildPageSeed(appts, patients, doctors)
	require.NoError(t, err)

	var gotAppts []SeedAppointment
	require.NoError(t, json.Unmarshal([]byte(seed.AppointmentsJSON), &gotAppts))
	require.Len(t, gotAppts, 2)
	require.Equal(t, "Done", gotAppts[0].Status)
	require.Equal(t, "Scheduled", gotAppts[1].Status)
	// Doctor label falls back to the id when the label is empty.
	require.Equal(t, "doc-2", gotAppts[1].Doctor)
	require.Equal(t, starts.Format(time.RFC3339), gotAppts[0].StartTime)

	var gotPatients []SeedPatient
	require.NoError(t, json.Unmarshal([]byte(seed.PatientsJSON), &gotPatients))
	require.Len(t, gotPatients, 1)
	require.Equal(t, "P-0001", gotPatients[0].FileNumber)

	var gotDoctors []string
	require.NoError(t, json.Unmarshal([]byte(seed.DoctorsJSON), &gotDoctors))
	require.Equal(t, []string{"All Doctors", "Dr. Palmer"}, gotDoctors)
}

func TestBuildPageSeedEmptyInputsStillRender(t *testing.T) {
	seed, err := BuildPageSeed(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(seed.AppointmentsJSON))
	require.Equal(t, "[]", string(seed.PatientsJSON))
	require.Equal(t, `["All Doctors"]`, string(seed.DoctorsJSON))
}
