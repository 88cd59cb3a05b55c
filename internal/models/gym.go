package models

import "time"

// WorkoutCard is a personal training plan made of ordered days
type WorkoutCard struct {
	ID          uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string       `gorm:"size:255;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	UserID      uint64       `gorm:"not null;index" json:"user_id"`
	Days        []WorkoutDay `gorm:"foreignKey:WorkoutCardID" json:"days"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// WorkoutDay is one session of a card. Days sort by Order, then by creation.
type WorkoutDay struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkoutCardID uint64     `gorm:"not null;index" json:"workout_card_id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	Order         int        `gorm:"column:sort_order;not null;default:0" json:"order"`
	Exercises     []Exercise `gorm:"foreignKey:WorkoutDayID" json:"exercises"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Exercise is a single movement of a workout day. Reps and Load are free text
// ("8-10", "20kg", "corpo libero").
type Exercise struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkoutDayID uint64    `gorm:"not null;index" json:"workout_day_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Sets         *int      `json:"sets"`
	Reps         string    `gorm:"size:50" json:"reps"`
	Load         string    `gorm:"size:50" json:"load"`
	Note         string    `gorm:"type:text" json:"note"`
	Order        int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName overrides the table name for WorkoutCard
func (WorkoutCard) TableName() string {
	return "workout_cards"
}

// TableName overrides the table name for WorkoutDay
func (WorkoutDay) TableName() string {
	return "workout_days"
}

// TableName overrides the table name for Exercise
func (Exercise) TableName() string {
	return "exercises"
}
