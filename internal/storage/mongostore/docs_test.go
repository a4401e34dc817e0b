package mongostore

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

func TestFarmDocNeverAnalyzedDecodesAsNil(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{
		"_id":       oid,
		"name":      "North",
		"cropType":  "wheat",
		"priority":  "high",
		"cropStage": "critical",
		"active":    true,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var d farmDoc
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	f := d.toEntity()
	if f.ID != oid.Hex() || f.LastAnalyzedAt != nil {
		t.Fatalf("unexpected farm %+v", f)
	}
	if f.Priority != entities.PriorityHigh || f.CropStage != entities.StageCritical {
		t.Fatalf("enum fields not carried: %+v", f)
	}
}

func TestAnalysisDocCarriesRiskLevel(t *testing.T) {
	rec := entities.AnalysisRecord{
		FarmID:     "f1",
		AnalyzedAt: time.Date(2026, 6, 2, 2, 0, 0, 0, time.UTC),
		Index: entities.IndexResult{
			Width:      2,
			Height:     2,
			Statistics: entities.Statistics{Mean: 0.15, ValidPixelCount: 4, TotalPixelCount: 4},
			Zones: entities.ZoneHistogram{
				entities.ZoneBareSoil: {Count: 4, Percentage: 100},
			},
		},
		Vision: &entities.VisionResult{
			RiskLevel: "high",
			Findings:  []entities.VisionFinding{{Type: "drought", Severity: entities.VisionHigh, Confidence: 70}},
		},
		AlertCount: 2,
	}
	d := analysisToDoc(rec)
	if d.RiskLevel != "high" || d.Vision == nil || len(d.Vision.Findings) != 1 {
		t.Fatalf("vision not mapped: %+v", d)
	}
	if d.Zones["bare_soil"].Percentage != 100 || d.Mean != 0.15 {
		t.Fatalf("index not mapped: %+v", d)
	}
	if _, err := bson.Marshal(d); err != nil {
		t.Fatalf("analysis doc must be encodable: %v", err)
	}
}

func TestReportDocKeepsReportData(t *testing.T) {
	r := entities.RunReport{
		ID:              "run-1",
		Date:            time.Date(2026, 6, 2, 2, 0, 0, 0, time.UTC),
		TotalFarms:      3,
		Succeeded:       2,
		Failed:          1,
		AlertsGenerated: 4,
		ReportData:      map[string]any{"batches": 1},
	}
	raw, err := bson.Marshal(reportToDoc(r))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var d reportDoc
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := d.toEntity()
	if got.ID != "run-1" || got.Failed != 1 || got.ReportData["batches"] == nil {
		t.Fatalf("unexpected report %+v", got)
	}
}

func TestIDFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	if idFilter(oid.Hex())["_id"] != oid {
		t.Fatalf("hex id must match as ObjectID")
	}
	if idFilter("farm-7")["_id"] != "farm-7" {
		t.Fatalf("non-hex id must match verbatim")
	}
	if hexID(oid) != oid.Hex() {
		t.Fatalf("hexID mismatch")
	}
}
