package entities

import "testing"

func TestAlertKeyUsesExactType(t *testing.T) {
	a := Alert{FarmID: "f1", Type: "vegetation_stress", Severity: SeverityHigh}
	b := a
	b.Type = "Vegetation_Stress"
	if a.Key() == b.Key() {
		t.Fatalf("keys must compare the type as given")
	}
	c := a
	c.Title = "other text"
	if a.Key() != c.Key() {
		t.Fatalf("free text must not affect the key")
	}
}

func TestSeverityRankOrder(t *testing.T) {
	if !(SeverityHigh.Rank() > SeverityMedium.Rank() && SeverityMedium.Rank() > SeverityLow.Rank() && SeverityLow.Rank() > SeverityInfo.Rank()) {
		t.Fatalf("severity ranks out of order")
	}
}
