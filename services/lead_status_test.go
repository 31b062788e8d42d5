package services

import (
	"errors"
	"testing"

	"github.com/leadnest/crm_backend/models"
)

// allLeadStatuses covers every state the machine knows about.
var allLeadStatuses = []models.LeadStatus{
	models.LeadStatusNew,
	models.LeadStatusConnected,
	models.LeadStatusNotPicked,
	models.LeadStatusFollowup,
	models.LeadStatusNotConverted,
	models.LeadStatusConverted,
	models.LeadStatusLost,
}

// TestLeadTransitionTable sweeps every (from, to) pair and checks it
// against the allowed transition table.
func TestLeadTransitionTable(t *testing.T) {
	allowed := map[models.LeadStatus]map[models.LeadStatus]bool{
		models.LeadStatusNew: {
			models.LeadStatusConnected: true, models.LeadStatusNotPicked: true, models.LeadStatusLost: true,
		},
		models.LeadStatusConnected: {
			models.LeadStatusNotConverted: true, models.LeadStatusFollowup: true,
			models.LeadStatusConverted: true, models.LeadStatusLost: true,
		},
		models.LeadStatusNotPicked: {
			models.LeadStatusConnected: true, models.LeadStatusFollowup: true, models.LeadStatusLost: true,
		},
		models.LeadStatusFollowup: {
			models.LeadStatusConnected: true, models.LeadStatusNotConverted: true,
			models.LeadStatusConverted: true, models.LeadStatusLost: true,
		},
		models.LeadStatusNotConverted: {
			models.LeadStatusConnected: true, models.LeadStatusFollowup: true,
			models.LeadStatusConverted: true, models.LeadStatusLost: true,
		},
		models.LeadStatusLost: {
			models.LeadStatusConnected: true,
		},
		models.LeadStatusConverted: {},
	}

	for _, from := range allLeadStatuses {
		for _, to := range allLeadStatuses {
			got := CanTransitionLead(from, to)
			want := allowed[from][to]
			if got != want {
				t.Errorf("CanTransitionLead(%s, %s): got %v, want %v", from, to, got, want)
			}
		}
	}
}

// TestConvertedIsTerminal verifies that no transition leads out of converted.
func TestConvertedIsTerminal(t *testing.T) {
	if nexts := AllowedLeadTransitions(models.LeadStatusConverted); len(nexts) != 0 {
		t.Errorf("converted should be terminal, allows %v", nexts)
	}
	for _, to := range allLeadStatuses {
		if CanTransitionLead(models.LeadStatusConverted, to) {
			t.Errorf("converted -> %s should not be allowed", to)
		}
	}
}

// TestLostIsRecoverable verifies the one way back out of lost.
func TestLostIsRecoverable(t *testing.T) {
	if !CanTransitionLead(models.LeadStatusLost, models.LeadStatusConnected) {
		t.Error("lost -> connected should be allowed")
	}
	if CanTransitionLead(models.LeadStatusLost, models.LeadStatusConverted) {
		t.Error("lost -> converted should not be allowed")
	}
}

func TestIsValidLeadStatus(t *testing.T) {
	for _, s := range allLeadStatuses {
		if !IsValidLeadStatus(s) {
			t.Errorf("%s should be a valid status", s)
		}
	}
	if IsValidLeadStatus("open") {
		t.Error("unknown status should not validate")
	}
	if IsValidLeadStatus("") {
		t.Error("empty status should not validate")
	}
}

// TestInvalidTransitionError checks the error identifies the attempted pair.
func TestInvalidTransitionError(t *testing.T) {
	err := invalidTransition("lead", "new", "converted")

	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("errors.Is(err, ErrInvalidTransition) should hold for %v", err)
	}

	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if ite.From != "new" || ite.To != "converted" {
		t.Errorf("error pair: got (%s, %s), want (new, converted)", ite.From, ite.To)
	}
}
