package mongostore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

// farmDoc mirrors the registry's farms collection.
type farmDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Name           string             `bson:"name"`
	CropType       string             `bson:"cropType"`
	AreaHa         float64            `bson:"areaHa"`
	Priority       string             `bson:"priority"`
	CropStage      string             `bson:"cropStage"`
	Geometry       map[string]any     `bson:"geometry"`
	Contact        string             `bson:"contact,omitempty"`
	LastAnalyzedAt *time.Time         `bson:"lastAnalyzedAt"`
	Active         bool               `bson:"active"`
}

func (d farmDoc) toEntity() entities.Farm {
	f := entities.Farm{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		CropType:     d.CropType,
		AreaHectares: d.AreaHa,
		Priority:     entities.Priority(d.Priority),
		CropStage:    entities.CropStage(d.CropStage),
		Geometry:     d.Geometry,
		Contact:      d.Contact,
		Active:       d.Active,
	}
	if d.LastAnalyzedAt != nil {
		t := d.LastAnalyzedAt.UTC()
		f.LastAnalyzedAt = &t
	}
	return f
}

type alertDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	FarmID         string             `bson:"farmId"`
	Type           string             `bson:"type"`
	Severity       string             `bson:"severity"`
	Title          string             `bson:"title"`
	Description    string             `bson:"description"`
	Recommendation string             `bson:"recommendation,omitempty"`
	Source         string             `bson:"source"`
	Metadata       map[string]any     `bson:"metadata,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
}

func alertToDoc(a entities.Alert) alertDoc {
	return alertDoc{
		FarmID:         a.FarmID,
		Type:           a.Type,
		Severity:       string(a.Severity),
		Title:          a.Title,
		Description:    a.Description,
		Recommendation: a.Recommendation,
		Source:         string(a.Source),
		Metadata:       a.Metadata,
		CreatedAt:      a.CreatedAt,
	}
}

type zoneDoc struct {
	Count      int     `bson:"count"`
	Percentage float64 `bson:"percentage"`
}

type findingDoc struct {
	Type        string  `bson:"type"`
	Description string  `bson:"description"`
	Severity    string  `bson:"severity"`
	Confidence  float64 `bson:"confidence"`
}

type visionDoc struct {
	Findings          []findingDoc `bson:"findings"`
	ConfidenceOverall float64      `bson:"confidenceOverall"`
	RiskLevel         string       `bson:"riskLevel"`
	Summary           string       `bson:"summary"`
}

type analysisDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	FarmID           string             `bson:"farmId"`
	AnalyzedAt       time.Time          `bson:"analyzedAt"`
	SensingDate      time.Time          `bson:"sensingDate"`
	CloudCoverage    float64            `bson:"cloudCoverage"`
	Width            int                `bson:"width"`
	Height           int                `bson:"height"`
	Mean             float64            `bson:"mean"`
	Min              float64            `bson:"min"`
	Max              float64            `bson:"max"`
	Std              float64            `bson:"std"`
	ValidPixels      int                `bson:"validPixels"`
	TotalPixels      int                `bson:"totalPixels"`
	Zones            map[string]zoneDoc `bson:"zones"`
	Vision           *visionDoc         `bson:"vision,omitempty"`
	RiskLevel        string             `bson:"riskLevel,omitempty"`
	AlertCount       int                `bson:"alertCount"`
	VisualizationURI string             `bson:"visualizationUri,omitempty"`
}

func analysisToDoc(r entities.AnalysisRecord) analysisDoc {
	st := r.Index.Statistics
	d := analysisDoc{
		FarmID:           r.FarmID,
		AnalyzedAt:       r.AnalyzedAt,
		SensingDate:      r.SensingDate,
		CloudCoverage:    r.CloudCoverage,
		Width:            r.Index.Width,
		Height:           r.Index.Height,
		Mean:             st.Mean,
		Min:              st.Min,
		Max:              st.Max,
		Std:              st.Std,
		ValidPixels:      st.ValidPixelCount,
		TotalPixels:      st.TotalPixelCount,
		Zones:            make(map[string]zoneDoc, len(r.Index.Zones)),
		AlertCount:       r.AlertCount,
		VisualizationURI: r.VisualizationURI,
	}
	for z, b := range r.Index.Zones {
		d.Zones[string(z)] = zoneDoc{Count: b.Count, Percentage: b.Percentage}
	}
	if v := r.Vision; v != nil {
		vd := &visionDoc{
			Findings:          make([]findingDoc, 0, len(v.Findings)),
			ConfidenceOverall: v.ConfidenceOverall,
			RiskLevel:         v.RiskLevel,
			Summary:           v.Summary,
		}
		for _, f := range v.Findings {
			vd.Findings = append(vd.Findings, findingDoc{
				Type:        f.Type,
				Description: f.Description,
				Severity:    string(f.Severity),
				Confidence:  f.Confidence,
			})
		}
		d.Vision = vd
		d.RiskLevel = v.RiskLevel
	}
	return d
}

type errorDoc struct {
	FarmID     string         `bson:"farmId"`
	RunID      string         `bson:"runId"`
	Stage      string         `bson:"stage"`
	Message    string         `bson:"message"`
	Context    map[string]any `bson:"context,omitempty"`
	OccurredAt time.Time      `bson:"occurredAt"`
}

type reportDoc struct {
	ID                 string    `bson:"_id"`
	Date               time.Time `bson:"date"`
	TotalFarms         int       `bson:"totalFarms"`
	Succeeded          int       `bson:"succeeded"`
	Failed             int       `bson:"failed"`
	Skipped            int       `bson:"skipped"`
	AlertsGenerated    int       `bson:"alertsGenerated"`
	SuccessRatePercent float64   `bson:"successRatePercent"`
	ExecutionTimeMs    int64     `bson:"executionTimeMs"`
	Canceled           bool      `bson:"canceled"`
	ReportData         bson.M    `bson:"reportData,omitempty"`
}

func reportToDoc(r entities.RunReport) reportDoc {
	d := reportDoc{
		ID:                 r.ID,
		Date:               r.Date,
		TotalFarms:         r.TotalFarms,
		Succeeded:          r.Succeeded,
		Failed:             r.Failed,
		Skipped:            r.Skipped,
		AlertsGenerated:    r.AlertsGenerated,
		SuccessRatePercent: r.SuccessRatePercent,
		ExecutionTimeMs:    r.ExecutionTimeMs,
		Canceled:           r.Canceled,
	}
	if len(r.ReportData) > 0 {
		d.ReportData = bson.M(r.ReportData)
	}
	return d
}

func (d reportDoc) toEntity() entities.RunReport {
	r := entities.RunReport{
		ID:                 d.ID,
		Date:               d.Date.UTC(),
		TotalFarms:         d.TotalFarms,
		Succeeded:          d.Succeeded,
		Failed:             d.Failed,
		Skipped:            d.Skipped,
		AlertsGenerated:    d.AlertsGenerated,
		SuccessRatePercent: d.SuccessRatePercent,
		ExecutionTimeMs:    d.ExecutionTimeMs,
		Canceled:           d.Canceled,
	}
	if d.ReportData != nil {
		r.ReportData = map[string]any(d.ReportData)
	}
	return r
}

// idFilter matches ObjectID ids by hex and anything else verbatim.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func hexID(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
