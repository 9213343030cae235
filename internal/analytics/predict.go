package analytics

import (
	"context"
	"math"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

// ageCurve is the expected wRC+ delta at each age relative to a 25-year-old.
var ageCurve = map[int]int{
	21: -8, 22: -5, 23: -3, 24: -1, 25: 0,
	26: 1, 27: 2, 28: 2, 29: 1, 30: 0,
	31: -1, 32: -2, 33: -3, 34: -5, 35: -7,
	36: -10, 37: -13, 38: -16, 39: -20, 40: -25,
}

const (
	ageCurveYoung = -8  // below 21
	ageCurveOld   = -25 // above 40

	projectionMinPA      = 100
	projectionSeasons    = 3
	minUncertainty       = 10.0
	regressionTierWeight = 4
)

var recencyWeights = [projectionSeasons]float64{0.5, 0.3, 0.2}

// Power flags.
const (
	FlagUnsustainablePowerSpike = "UNSUSTAINABLE_POWER_SPIKE"
	FlagPowerDecline            = "POWER_DECLINE"
	FlagInflatedHRFB            = "INFLATED_HR_FB_PCT"
	FlagDepressedHRFB           = "DEPRESSED_HR_FB_PCT"
)

// Contact quality classifications.
const (
	ContactLuckySingles = "LUCKY_SINGLES"
	ContactImproved     = "IMPROVED_CONTACT"
	ContactBABIPDriven  = "BABIP_DRIVEN"
	ContactUnluckyPower = "UNLUCKY_POWER"
	ContactUnlucky      = "UNLUCKY"
	ContactNeutral      = "NEUTRAL"
	ContactUnknown      = "UNKNOWN"
)

const (
	contactBABIPThreshold  = 0.040
	contactISOThreshold    = 0.030
	powerISOThreshold      = 0.060
	powerHRFBThreshold     = 8.0
	disciplinePointsPerPct = 2.0

	// Slopes per season. Significant slopes count toward a genuine change,
	// directional ones decide whether it improves or declines.
	skillKSignificant     = 1.5
	skillBBSignificant    = 0.8
	skillISOSignificant   = 0.025
	skillKDirectional     = 1.0
	skillBBDirectional    = 0.5
	skillISODirectional   = 0.02
	skillChangeAdjustment = 5
	skillChangeMinSeasons = 3
)

func ageCurveValue(age int) int {
	if v, ok := ageCurve[age]; ok {
		return v
	}
	if age > 40 {
		return ageCurveOld
	}
	return ageCurveYoung
}

// AgeAdjustment is the curve change from currentAge to nextAge.
func AgeAdjustment(currentAge, nextAge int) int {
	return ageCurveValue(nextAge) - ageCurveValue(currentAge)
}

// PlateDisciplineScore rewards strikeout and walk gains against career:
// two wRC+ points per percentage point. Zero and NONE when an input is nil.
func PlateDisciplineScore(k, bb, careerK, careerBB *float64) (int, string) {
	kDelta, okK := diff(k, careerK)
	bbDelta, okBB := diff(bb, careerBB)
	if !okK || !okBB {
		return 0, ConfidenceNone
	}
	score := round(-kDelta*disciplinePointsPerPct + bbDelta*disciplinePointsPerPct)

	absK, absBB := math.Abs(kDelta), math.Abs(bbDelta)
	switch {
	case absK >= 3 || absBB >= 2:
		return score, ConfidenceHigh
	case absK >= 1.5 || absBB >= 1:
		return score, ConfidenceMedium
	default:
		return score, ConfidenceLow
	}
}

// PowerSustainabilityScore penalizes ISO and HR/FB spikes and credits
// depressed HR/FB. Zero when ISO or career ISO is nil.
func PowerSustainabilityScore(iso, hrfb, careerISO, careerHRFB *float64) (int, []string) {
	flags := []string{}
	isoDelta, ok := diff(iso, careerISO)
	if !ok {
		return 0, flags
	}

	adj := 0
	switch {
	case isoDelta > powerISOThreshold:
		adj -= 5
		flags = append(flags, FlagUnsustainablePowerSpike)
	case isoDelta < -powerISOThreshold:
		adj -= 3
		flags = append(flags, FlagPowerDecline)
	}

	if hrfbDelta, ok := diff(hrfb, careerHRFB); ok {
		switch {
		case hrfbDelta > powerHRFBThreshold:
			adj -= 3
			flags = append(flags, FlagInflatedHRFB)
		case hrfbDelta < -powerHRFBThreshold:
			adj += 3
			flags = append(flags, FlagDepressedHRFB)
		}
	}
	return adj, flags
}

// ContactQualityScore reads BABIP and ISO movement together.
func ContactQualityScore(babip, careerBABIP, iso, careerISO *float64) (int, string) {
	babipDelta, okB := diff(babip, careerBABIP)
	isoDelta, okI := diff(iso, careerISO)
	if !okB || !okI {
		return 0, ContactUnknown
	}
	switch {
	case babipDelta > contactBABIPThreshold && isoDelta < -contactISOThreshold:
		return -7, ContactLuckySingles
	case babipDelta > contactBABIPThreshold && isoDelta > contactISOThreshold:
		return 3, ContactImproved
	case babipDelta > contactBABIPThreshold:
		return -4, ContactBABIPDriven
	case babipDelta < -contactBABIPThreshold && isoDelta > contactISOThreshold:
		return 7, ContactUnluckyPower
	case babipDelta < -contactBABIPThreshold:
		return 5, ContactUnlucky
	}
	return 0, ContactNeutral
}

// SkillChange is the trend read on K%, BB% and ISO across recent seasons.
type SkillChange struct {
	Genuine   bool     `json:"genuine_change"`
	Improving bool     `json:"improving"`
	Declining bool     `json:"declining"`
	KTrend    *float64 `json:"k_trend,omitempty"`
	BBTrend   *float64 `json:"bb_trend,omitempty"`
	ISOTrend  *float64 `json:"iso_trend,omitempty"`
	Seasons   int      `json:"seasons"`
}

// DetectSkillChange fits per-season slopes over seasons ordered oldest
// first. A change is genuine when at least two slopes are significant.
func DetectSkillChange(seasons []batting.SeasonStat) SkillChange {
	sc := SkillChange{Seasons: len(seasons)}
	if len(seasons) < skillChangeMinSeasons {
		return sc
	}
	var k, bb, iso []*float64
	for i := range seasons {
		k = append(k, seasons[i].KPct)
		bb = append(bb, seasons[i].BBPct)
		iso = append(iso, seasons[i].ISO)
	}
	sc.KTrend, sc.BBTrend, sc.ISOTrend = slope(k), slope(bb), slope(iso)

	significant := 0
	if sc.KTrend != nil && math.Abs(*sc.KTrend) > skillKSignificant {
		significant++
	}
	if sc.BBTrend != nil && math.Abs(*sc.BBTrend) > skillBBSignificant {
		significant++
	}
	if sc.ISOTrend != nil && math.Abs(*sc.ISOTrend) > skillISOSignificant {
		significant++
	}
	sc.Genuine = significant >= 2

	sc.Improving = (sc.KTrend != nil && *sc.KTrend < -skillKDirectional) ||
		(sc.BBTrend != nil && *sc.BBTrend > skillBBDirectional) ||
		(sc.ISOTrend != nil && *sc.ISOTrend > skillISODirectional)
	sc.Declining = (sc.KTrend != nil && *sc.KTrend > skillKDirectional) ||
		(sc.BBTrend != nil && *sc.BBTrend < -skillBBDirectional) ||
		(sc.ISOTrend != nil && *sc.ISOTrend < -skillISODirectional)
	return sc
}

// Adjustment converts a skill change into wRC+ points.
func (sc SkillChange) Adjustment() int {
	switch {
	case !sc.Genuine:
		return 0
	case sc.Improving:
		return skillChangeAdjustment
	case sc.Declining:
		return -skillChangeAdjustment
	}
	return 0
}

// Projection is a next-season wRC+ forecast with its full breakdown.
type Projection struct {
	PlayerID      int    `json:"player_id"`
	Name          string `json:"name,omitempty"`
	CurrentSeason int    `json:"current_season"`
	LatestSeason  int    `json:"latest_season"`

	PredictedWRCPlus int    `json:"predicted_wrc_plus"`
	PredictionRange  [2]int `json:"prediction_range"`
	BaselineWRCPlus  int    `json:"baseline_wrc_plus"`
	Confidence       string `json:"confidence"`

	CurrentAge *int `json:"current_age"`
	NextAge    *int `json:"next_age"`

	AgeAdjustment         int `json:"age_adjustment"`
	DisciplineAdjustment  int `json:"discipline_adjustment"`
	PowerAdjustment       int `json:"power_adjustment"`
	ContactAdjustment     int `json:"contact_adjustment"`
	SkillChangeAdjustment int `json:"skill_change_adjustment"`
	RegressionAdjustment  int `json:"regression_adjustment"`

	PowerFlags           []string    `json:"power_flags"`
	ContactType          string      `json:"contact_type"`
	SkillChange          SkillChange `json:"skill_change"`
	DisciplineConfidence string      `json:"discipline_confidence"`

	SamplePA      int     `json:"sample_size_pa"`
	RecentSeasons int     `json:"recent_seasons"`
	WRCPlusStd    float64 `json:"wrc_plus_std"`
}

// Predictor combines recent form, aging, peripherals and regression
// signals into a next-season wRC+ projection.
type Predictor struct {
	store    batting.Store
	detector *RegressionDetector
}

func NewPredictor(store batting.Store, detector *RegressionDetector) *Predictor {
	return &Predictor{store: store, detector: detector}
}

// PredictNextSeason projects the season after the latest qualifying season
// at or before currentSeason. Nil when there is no qualifying season or
// the career baseline before currentSeason is insufficient.
func (p *Predictor) PredictNextSeason(ctx context.Context, playerID, currentSeason int) (*Projection, error) {
	rows, err := p.store.SeasonStats(ctx, playerID, batting.SeasonRange{To: currentSeason}, projectionMinPA)
	if err != nil {
		return nil, err
	}
	var qualified []batting.SeasonStat
	for _, r := range dedupeSeasons(rows) {
		if r.WRCPlus != nil {
			qualified = append(qualified, r)
		}
	}
	if len(qualified) == 0 {
		return nil, nil
	}
	recent := qualified[max(0, len(qualified)-projectionSeasons):]
	latest := recent[len(recent)-1]

	career, err := p.store.CareerAggregate(ctx, playerID, currentSeason, batting.MinBaselineSeasonPA)
	if err != nil {
		return nil, err
	}
	if !career.Sufficient() {
		return nil, nil
	}

	player, err := p.store.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}

	// Step 1: recency-weighted baseline, most recent season first.
	var weighted, weightSum, totalPA float64
	wrcs := make([]float64, 0, len(recent))
	for i := range recent {
		s := recent[len(recent)-1-i]
		weighted += recencyWeights[i] * *s.WRCPlus
		weightSum += recencyWeights[i]
		totalPA += float64(s.PA)
		wrcs = append(wrcs, *s.WRCPlus)
	}
	baseline := weighted / weightSum

	proj := &Projection{
		PlayerID:        playerID,
		Name:            latest.Name,
		CurrentSeason:   currentSeason,
		LatestSeason:    latest.Season,
		BaselineWRCPlus: round(baseline),
		SamplePA:        int(totalPA),
		RecentSeasons:   len(recent),
	}
	if player != nil && player.Name != "" {
		proj.Name = player.Name
	}

	// Step 2: aging.
	ageKnown := false
	if age, ok := player.AgeIn(latest.Season); ok {
		next := age + 1
		proj.CurrentAge, proj.NextAge = &age, &next
		proj.AgeAdjustment = AgeAdjustment(age, next)
		ageKnown = true
	}

	// Steps 3-5: peripherals against career.
	proj.DisciplineAdjustment, proj.DisciplineConfidence =
		PlateDisciplineScore(latest.KPct, latest.BBPct, career.KPct, career.BBPct)
	proj.PowerAdjustment, proj.PowerFlags =
		PowerSustainabilityScore(latest.ISO, latest.HRFBPct, career.ISO, career.HRFBPct)
	proj.ContactAdjustment, proj.ContactType =
		ContactQualityScore(latest.BABIP, career.BABIP, latest.ISO, career.ISO)

	// Step 6: skill trend.
	proj.SkillChange = DetectSkillChange(recent)
	proj.SkillChangeAdjustment = proj.SkillChange.Adjustment()

	// Step 7: tier-1 regression signals on the latest season.
	analysis, err := p.detector.AnalyzePlayerSeason(ctx, playerID, latest.Season)
	if err != nil {
		return nil, err
	}
	if analysis != nil {
		proj.RegressionAdjustment = regressionTierWeight * (analysis.Tier1Buys - analysis.Tier1Sells)
	}

	// Step 8.
	predicted := baseline +
		float64(proj.AgeAdjustment+proj.DisciplineAdjustment+proj.PowerAdjustment+
			proj.ContactAdjustment+proj.SkillChangeAdjustment+proj.RegressionAdjustment)
	proj.PredictedWRCPlus = round(predicted)

	// Step 9: confidence and range.
	std := stdDev(wrcs)
	proj.WRCPlusStd = roundTo(std, 2)
	switch {
	case totalPA >= 1200 && std < 15 && ageKnown:
		proj.Confidence = ConfidenceHigh
	case totalPA >= 600 && ageKnown:
		proj.Confidence = ConfidenceMedium
	default:
		proj.Confidence = ConfidenceLow
	}
	spread := max(std, minUncertainty)
	proj.PredictionRange = [2]int{round(predicted - spread), round(predicted + spread)}

	return proj, nil
}
