package interview

// Dimension is one competency axis of the assessment.
type Dimension string

const (
	ProfessionalKnowledge Dimension = "professional_knowledge"
	SkillMatch            Dimension = "skill_match"
	CommunicationAbility  Dimension = "communication_ability"
	LogicalThinking       Dimension = "logical_thinking"
	StressResilience      Dimension = "stress_resilience"
)

// Dimensions is the closed, ordered set every assessment carries.
var Dimensions = []Dimension{
	ProfessionalKnowledge,
	SkillMatch,
	CommunicationAbility,
	LogicalThinking,
	StressResilience,
}

// Title returns a human readable name.
func (d Dimension) Title() string {
	switch d {
	case ProfessionalKnowledge:
		return "Professional knowledge"
	case SkillMatch:
		return "Skill match"
	case CommunicationAbility:
		return "Communication ability"
	case LogicalThinking:
		return "Logical thinking"
	case StressResilience:
		return "Stress resilience"
	default:
		return string(d)
	}
}

const (
	MinScore     = 0.0
	MaxScore     = 10.0
	NeutralScore = 5.0
)

// DimensionScore is the score and comment for one dimension.
type DimensionScore struct {
	Dimension Dimension `json:"dimension"`
	Score     float64   `json:"score"`
	Comment   string    `json:"comment"`
}

// Assessment holds exactly one score per dimension, in Dimensions order.
type Assessment struct {
	Scores []DimensionScore `json:"scores"`
}

// Score returns the score of d.
func (a Assessment) Score(d Dimension) (DimensionScore, bool) {
	for _, s := range a.Scores {
		if s.Dimension == d {
			return s, true
		}
	}
	return DimensionScore{}, false
}

// NeutralAssessment returns an assessment with every dimension at the neutral score.
func NeutralAssessment(comment string) Assessment {
	scores := make([]DimensionScore, 0, len(Dimensions))
	for _, d := range Dimensions {
		scores = append(scores, DimensionScore{Dimension: d, Score: NeutralScore, Comment: comment})
	}
	return Assessment{Scores: scores}
}

// ClampScore forces v into [MinScore, MaxScore].
func ClampScore(v float64) float64 {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// SignalBundle is a flat feature map produced by one signal source.
type SignalBundle struct {
	Source   string         `json:"source"`
	Features map[string]any `json:"features"`
	Fallback bool           `json:"fallback"`
}

// MultimodalAnalysis is written once during the analysis stage.
type MultimodalAnalysis struct {
	Visual     SignalBundle `json:"visual"`
	Audio      SignalBundle `json:"audio"`
	Text       SignalBundle `json:"text"`
	Assessment Assessment   `json:"assessment"`
}

// Report is written once during the report stage.
type Report struct {
	OverallScore    float64          `json:"overall_score"`
	Scores          []DimensionScore `json:"scores"`
	Strengths       []string         `json:"strengths"`
	Weaknesses      []string         `json:"weaknesses"`
	Recommendations []string         `json:"recommendations"`
	Narrative       string           `json:"narrative"`
	EndedEarly      bool             `json:"ended_early,omitempty"`
}

// LearningResource is one study material matched to a weak dimension.
type LearningResource struct {
	Title     string    `json:"title" yaml:"title" mapstructure:"title"`
	URL       string    `json:"url,omitempty" yaml:"url" mapstructure:"url"`
	Kind      string    `json:"kind,omitempty" yaml:"kind" mapstructure:"kind"`
	Dimension Dimension `json:"dimension" yaml:"dimension" mapstructure:"dimension"`
}
