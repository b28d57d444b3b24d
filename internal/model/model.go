package model

import "time"

type RarityTier string

const (
	RarityCommon    RarityTier = "common"
	RarityUncommon  RarityTier = "uncommon"
	RarityRare      RarityTier = "rare"
	RarityLegendary RarityTier = "legendary"
)

// RarityTiers lists the tiers from most to least common.
var RarityTiers = []RarityTier{RarityCommon, RarityUncommon, RarityRare, RarityLegendary}

func (t RarityTier) Valid() bool {
	switch t {
	case RarityCommon, RarityUncommon, RarityRare, RarityLegendary:
		return true
	default:
		return false
	}
}

type CollectibleItem struct {
	ID          int        `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	ImageRef    string     `json:"image_ref" yaml:"image_ref"`
	Category    string     `json:"category" yaml:"category"`
	Description string     `json:"description" yaml:"description"`
	RarityTier  RarityTier `json:"rarity_tier,omitempty" yaml:"rarity_tier,omitempty"`
}

type AcquiredVia string

const (
	AcquiredViaQuiz AcquiredVia = "quiz"
	AcquiredViaGoal AcquiredVia = "goal"
)

type OwnedItem struct {
	CollectibleItem
	AcquiredVia AcquiredVia `json:"acquired_via"`
	AcquiredAt  time.Time   `json:"acquired_at"`
	MirrorRef   string      `json:"mirror_ref,omitempty"`
}

type Collection struct {
	Items []OwnedItem `json:"items"`
}

func (c Collection) Len() int {
	return len(c.Items)
}

type QuizQuestion struct {
	QuestionText  string   `json:"question_text" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption string   `json:"correct_option,omitempty" yaml:"correct_answer"`
}

// Public strips the correct option so the question can be sent to a player.
func (q QuizQuestion) Public() QuizQuestion {
	return QuizQuestion{
		QuestionText: q.QuestionText,
		Options:      append([]string(nil), q.Options...),
	}
}

type StepHistoryEntry struct {
	DateKey string `json:"date_key"`
	Steps   int    `json:"steps"`
}

// DailyStepChallenge is one user's step record for DateKey. RewardItemID is
// the item picked for the day's goal reward, recorded before it is granted.
type DailyStepChallenge struct {
	DateKey       string             `json:"date_key"`
	CurrentSteps  int                `json:"current_steps"`
	DailyGoal     int                `json:"daily_goal"`
	Completed     bool               `json:"completed"`
	RewardClaimed bool               `json:"reward_claimed"`
	RewardItemID  int                `json:"reward_item_id,omitempty"`
	History       []StepHistoryEntry `json:"history"`
}

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Unlocked    bool   `json:"unlocked"`
	Progress    int    `json:"progress"`
	Target      int    `json:"target"`
}

type DailyReport struct {
	Date          string             `json:"date"`
	UserID        string             `json:"user_id"`
	Steps         int                `json:"steps"`
	DailyGoal     int                `json:"daily_goal,omitempty"`
	GoalCompleted bool               `json:"goal_completed"`
	Acquired      []OwnedItem        `json:"acquired"`
	History       []StepHistoryEntry `json:"history"`
	GeneratedText string             `json:"generated_text"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	OwnedItems int    `json:"owned_items"`
	TodaySteps int    `json:"today_steps"`
}
