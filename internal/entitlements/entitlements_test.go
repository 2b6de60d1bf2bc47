package entitlements

import (
	"testing"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

func TestResolve_PaidUserKnownTag(t *testing.T) {
	tag := "pro"
	user := &models.User{HasPaidAccess: true, PaidPlanPriceTag: &tag}
	ent := Resolve(user, time.Now())

	if ent.AccessSource != AccessSourcePaid {
		t.Fatalf("AccessSource = %v, want paid", ent.AccessSource)
	}
	if ent.CompetitorLimit != 10 {
		t.Errorf("CompetitorLimit = %d, want 10", ent.CompetitorLimit)
	}
	if ent.SeverityGate != models.SeverityGateHighAndMedium {
		t.Errorf("SeverityGate = %v, want high_and_medium", ent.SeverityGate)
	}
}

func TestResolve_PaidUserUnknownTagFallsBackToStarter(t *testing.T) {
	tag := "some-future-plan"
	user := &models.User{HasPaidAccess: true, PaidPlanPriceTag: &tag}
	ent := Resolve(user, time.Now())

	if ent.PlanTier != "starter" {
		t.Errorf("PlanTier = %q, want starter fallback", ent.PlanTier)
	}
	if !ent.HasAccess {
		t.Error("expected fallback tier to still grant access")
	}
}

func TestResolve_ActiveTrialGrantsStarterGate(t *testing.T) {
	ends := time.Now().Add(48 * time.Hour)
	user := &models.User{TrialStatus: models.TrialStatusActive, TrialEndsAt: &ends}
	ent := Resolve(user, time.Now())

	if ent.AccessSource != AccessSourceTrial {
		t.Fatalf("AccessSource = %v, want trial", ent.AccessSource)
	}
	if ent.CanReceiveWeeklyDigest {
		t.Error("trial users must never receive the weekly digest")
	}
	if !ent.SeverityGate.Allows(models.SeverityHigh) || ent.SeverityGate.Allows(models.SeverityMedium) {
		t.Errorf("trial gate = %v, want high_only", ent.SeverityGate)
	}
}

func TestResolve_ExpiredTrialHasNoAccess(t *testing.T) {
	ends := time.Now().Add(-1 * time.Hour)
	user := &models.User{TrialStatus: models.TrialStatusActive, TrialEndsAt: &ends}
	ent := Resolve(user, time.Now())

	if ent.HasAccess {
		t.Error("expected no access once trialEndsAt has passed")
	}
	if ent.CompetitorLimit != 0 {
		t.Errorf("CompetitorLimit = %d, want 0", ent.CompetitorLimit)
	}
}

func TestResolve_NeverStartedHasNoAccess(t *testing.T) {
	user := &models.User{TrialStatus: models.TrialStatusNotStarted}
	ent := Resolve(user, time.Now())

	if ent.HasAccess || ent.AccessSource != AccessSourceNone {
		t.Errorf("got %+v, want no access", ent)
	}
}

func TestCanGenerateInsight_RespectsGate(t *testing.T) {
	ends := time.Now().Add(time.Hour)
	trialEnt := Resolve(&models.User{TrialStatus: models.TrialStatusActive, TrialEndsAt: &ends}, time.Now())

	if !trialEnt.CanGenerateInsight(models.SeverityHigh) {
		t.Error("trial gate should allow high")
	}
	if trialEnt.CanGenerateInsight(models.SeverityMedium) {
		t.Error("trial gate should not allow medium")
	}

	tag := "pro"
	proEnt := Resolve(&models.User{HasPaidAccess: true, PaidPlanPriceTag: &tag}, time.Now())
	if !proEnt.CanGenerateInsight(models.SeverityMedium) {
		t.Error("pro gate should allow medium")
	}
}

func TestRefreshTrialStatus_ConvertsOnPaidAccess(t *testing.T) {
	ends := time.Now().Add(time.Hour)
	user := &models.User{TrialStatus: models.TrialStatusActive, TrialEndsAt: &ends, HasPaidAccess: true}

	if !RefreshTrialStatus(user, time.Now()) {
		t.Fatal("expected a transition")
	}
	if user.TrialStatus != models.TrialStatusConverted {
		t.Errorf("TrialStatus = %v, want converted", user.TrialStatus)
	}
}

func TestRefreshTrialStatus_ExpiresOnElapsedWindow(t *testing.T) {
	ends := time.Now().Add(-time.Minute)
	user := &models.User{TrialStatus: models.TrialStatusActive, TrialEndsAt: &ends}

	if !RefreshTrialStatus(user, time.Now()) {
		t.Fatal("expected a transition")
	}
	if user.TrialStatus != models.TrialStatusExpired {
		t.Errorf("TrialStatus = %v, want expired", user.TrialStatus)
	}
}

func TestRefreshTrialStatus_IdempotentOnNonActiveStatus(t *testing.T) {
	user := &models.User{TrialStatus: models.TrialStatusExpired}
	if RefreshTrialStatus(user, time.Now()) {
		t.Error("expected no transition once already terminal")
	}
}
