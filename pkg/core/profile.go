package core

import "time"

// ModuleProfile records timing markers for one module's trip through the make phase.
// It is observational only. Tasks hand it along with the module, and the
// graph node keeps the same pointer, so the node's Profile must not be read
// while a Make generation is running.
type ModuleProfile struct {
	FactoryStart     time.Time
	FactoryEnd       time.Time
	IntegrationStart time.Time
	IntegrationEnd   time.Time
	BuildingStart    time.Time
	BuildingEnd      time.Time
}

// NewModuleProfile returns an empty profile.
func NewModuleProfile() *ModuleProfile {
	return &ModuleProfile{}
}

// MarkFactoryStart marks the start of resolution.
func (p *ModuleProfile) MarkFactoryStart() { p.FactoryStart = time.Now() }

// MarkFactoryEnd marks the end of resolution.
func (p *ModuleProfile) MarkFactoryEnd() { p.FactoryEnd = time.Now() }

// MarkIntegrationStart marks the start of the add step.
func (p *ModuleProfile) MarkIntegrationStart() { p.IntegrationStart = time.Now() }

// MarkIntegrationEnd marks the end of the add step.
func (p *ModuleProfile) MarkIntegrationEnd() { p.IntegrationEnd = time.Now() }

// MarkBuildingStart marks the start of the build step.
func (p *ModuleProfile) MarkBuildingStart() { p.BuildingStart = time.Now() }

// MarkBuildingEnd marks the end of the build step.
func (p *ModuleProfile) MarkBuildingEnd() { p.BuildingEnd = time.Now() }

// ProfileDurations is the per-phase breakdown of a ModuleProfile.
type ProfileDurations struct {
	Factory     time.Duration
	Integration time.Duration
	Building    time.Duration
}

// Durations returns the elapsed time of each completed phase. Phases whose
// end marker was never set report zero.
func (p *ModuleProfile) Durations() ProfileDurations {
	return ProfileDurations{
		Factory:     span(p.FactoryStart, p.FactoryEnd),
		Integration: span(p.IntegrationStart, p.IntegrationEnd),
		Building:    span(p.BuildingStart, p.BuildingEnd),
	}
}

func span(start, end time.Time) time.Duration {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start)
}
