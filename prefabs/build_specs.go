package prefabs

import "gopkg.in/yaml.v3"

// MissionsSpec is missions.yaml, an ordered mission list.
type MissionsSpec struct {
	Missions []MissionSpec `yaml:"missions"`
}

// MissionSpec names a mission kind; Params is decoded per kind with
// DecodeParams.
type MissionSpec struct {
	Kind        string         `yaml:"kind"`
	Description string         `yaml:"description"`
	Params      map[string]any `yaml:"params"`
}

func LoadMissionsSpec() (MissionsSpec, error) {
	return LoadSpec[MissionsSpec]("missions.yaml")
}

func DecodeParams[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return zero, err
	}
	var out T
	if err := yaml.Unmarshal(b, &out); err != nil {
		return zero, err
	}
	return out, nil
}

type ReachTargetParams struct {
	X      float64 `yaml:"x"`
	Z      float64 `yaml:"z"`
	Radius float64 `yaml:"radius"`
}

type DisperseParams struct {
	Target int `yaml:"target"`
}

type SurviveParams struct {
	TimeLimit float64 `yaml:"time_limit"`
}
