package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// scenarioNamespace scopes generated scenario ids.
var scenarioNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:flood-exposure:scenario"))

// ScenarioRequest is the JSON form of a scenario as it arrives on the source
// topic or the HTTP API. Unset fields take the service defaults.
type ScenarioRequest struct {
	ID                       string   `json:"id,omitempty"`
	Method                   string   `json:"method,omitempty"`
	LevelAboveRiverM         *float64 `json:"level_above_river_m,omitempty"`
	TargetLevelM             *float64 `json:"target_level_m,omitempty"`
	RiverPercentile          *float64 `json:"river_percentile,omitempty"`
	HANDPercentile           *float64 `json:"hand_percentile,omitempty"`
	HANDMaxDrainageDistanceM *float64 `json:"hand_max_drainage_distance_m,omitempty"`
}

// ScenarioDefaults fills the fields a request leaves out.
type ScenarioDefaults struct {
	RiverPercentile float64
	HAND            HANDConfig
}

func DefaultScenarioDefaults() ScenarioDefaults {
	return ScenarioDefaults{RiverPercentile: DefaultRiverPercentile, HAND: DefaultHANDConfig()}
}

// ParseRawEvent decodes a scenario request from a source message.
func ParseRawEvent(raw RawEvent, defaults ScenarioDefaults) (Scenario, error) {
	var req ScenarioRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return Scenario{}, fmt.Errorf("%w: decode request: %v", ErrInvalidScenario, err)
	}
	if req.ID == "" && len(raw.Key) > 0 {
		req.ID = string(raw.Key)
	}
	return req.Scenario(defaults)
}

// Scenario resolves the request against defaults and validates it. Requests
// without an id get a deterministic one derived from their parameters.
func (r ScenarioRequest) Scenario(defaults ScenarioDefaults) (Scenario, error) {
	method, err := ParseMethod(r.Method)
	if err != nil {
		return Scenario{}, err
	}
	if r.LevelAboveRiverM == nil && r.TargetLevelM == nil {
		return Scenario{}, fmt.Errorf("%w: one of level_above_river_m or target_level_m is required", ErrInvalidScenario)
	}

	sc := Scenario{
		ID:              r.ID,
		Method:          method,
		TargetLevelM:    r.TargetLevelM,
		RiverPercentile: defaults.RiverPercentile,
		HAND:            defaults.HAND,
	}
	if r.LevelAboveRiverM != nil {
		sc.LevelAboveRiverM = *r.LevelAboveRiverM
	}
	if r.RiverPercentile != nil {
		sc.RiverPercentile = *r.RiverPercentile
	}
	if r.HANDPercentile != nil {
		sc.HAND.Percentile = *r.HANDPercentile
	}
	if r.HANDMaxDrainageDistanceM != nil {
		sc.HAND.MaxDrainageDistanceM = *r.HANDMaxDrainageDistanceM
	}
	if sc.ID == "" {
		sc.ID = generateID(sc)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// generateID derives a name-based (v5) UUID from the resolved parameters so
// replays of the same request map to the same report key.
func generateID(sc Scenario) string {
	target := "-"
	if sc.TargetLevelM != nil {
		target = strconv.FormatFloat(*sc.TargetLevelM, 'g', -1, 64)
	}
	input := fmt.Sprintf("%s|%g|%s|%g|%g|%g",
		sc.Method, sc.LevelAboveRiverM, target, sc.RiverPercentile,
		sc.HAND.Percentile, sc.HAND.MaxDrainageDistanceM)
	return uuid.NewSHA1(scenarioNamespace, []byte(input)).String()
}
