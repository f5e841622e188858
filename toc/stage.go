package toc

// Stage is a state of the generation pass
type Stage int

const (
	StageIdle Stage = iota
	StageScanning
	StageNoHeadings
	StageExtracting
	StageAnchoring
	StageRendering
	StageCommitting
	StageCleaningUp
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageScanning:
		return "scanning"
	case StageNoHeadings:
		return "no-headings"
	case StageExtracting:
		return "extracting"
	case StageAnchoring:
		return "anchoring"
	case StageRendering:
		return "rendering"
	case StageCommitting:
		return "committing"
	case StageCleaningUp:
		return "cleaning-up"
	default:
		return "unknown"
	}
}
