package services

import (
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/sanitize"
	"github.com/localnerve/gestionale/internal/types"
	"gorm.io/gorm"
)

// ExerciseInput is the create payload for an exercise
type ExerciseInput struct {
	Name  string `json:"name"`
	Sets  *int   `json:"sets"`
	Reps  string `json:"reps"`
	Load  string `json:"load"`
	Note  string `json:"note"`
	Order int    `json:"order"`
}

// DayInput is the create payload for a workout day with its exercises
type DayInput struct {
	Name      string          `json:"name"`
	Order     int             `json:"order"`
	Exercises []ExerciseInput `json:"exercises"`
}

// CardInput is the nested create payload for a workout card
type CardInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Days        []DayInput `json:"days"`
}

// CardUpdate carries the mutable fields of a card
type CardUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// DayUpdate carries the mutable fields of a day
type DayUpdate struct {
	Name  *string `json:"name"`
	Order *int    `json:"order"`
}

// ExerciseUpdate carries the mutable fields of an exercise
type ExerciseUpdate struct {
	Name  *string `json:"name"`
	Sets  *int    `json:"sets"`
	Reps  *string `json:"reps"`
	Load  *string `json:"load"`
	Note  *string `json:"note"`
	Order *int    `json:"order"`
}

func requiredName(s string) (string, error) {
	name := sanitize.Text(s)
	if name == "" {
		return "", types.Validation("name is required")
	}
	return name, nil
}

func (in ExerciseInput) model(dayID uint64) (models.Exercise, error) {
	name, err := requiredName(in.Name)
	if err != nil {
		return models.Exercise{}, err
	}
	if in.Sets != nil && *in.Sets < 0 {
		return models.Exercise{}, types.Validation("sets must not be negative")
	}
	return models.Exercise{
		WorkoutDayID: dayID,
		Name:         name,
		Sets:         in.Sets,
		Reps:         sanitize.Text(in.Reps),
		Load:         sanitize.Text(in.Load),
		Note:         sanitize.Text(in.Note),
		Order:        in.Order,
	}, nil
}

func (in DayInput) model(cardID uint64) (models.WorkoutDay, error) {
	name, err := requiredName(in.Name)
	if err != nil {
		return models.WorkoutDay{}, err
	}
	day := models.WorkoutDay{WorkoutCardID: cardID, Name: name, Order: in.Order}
	for _, ex := range in.Exercises {
		m, err := ex.model(0)
		if err != nil {
			return models.WorkoutDay{}, err
		}
		day.Exercises = append(day.Exercises, m)
	}
	return day, nil
}

func (u CardUpdate) apply(c *models.WorkoutCard) error {
	if u.Name != nil {
		name, err := requiredName(*u.Name)
		if err != nil {
			return err
		}
		c.Name = name
	}
	if u.Description != nil {
		c.Description = sanitize.Text(*u.Description)
	}
	return nil
}

func (u DayUpdate) apply(d *models.WorkoutDay) error {
	if u.Name != nil {
		name, err := requiredName(*u.Name)
		if err != nil {
			return err
		}
		d.Name = name
	}
	if u.Order != nil {
		d.Order = *u.Order
	}
	return nil
}

func (u ExerciseUpdate) apply(e *models.Exercise) error {
	if u.Name != nil {
		name, err := requiredName(*u.Name)
		if err != nil {
			return err
		}
		e.Name = name
	}
	if u.Sets != nil {
		if *u.Sets < 0 {
			return types.Validation("sets must not be negative")
		}
		e.Sets = u.Sets
	}
	if u.Reps != nil {
		e.Reps = sanitize.Text(*u.Reps)
	}
	if u.Load != nil {
		e.Load = sanitize.Text(*u.Load)
	}
	if u.Note != nil {
		e.Note = sanitize.Text(*u.Note)
	}
	if u.Order != nil {
		e.Order = *u.Order
	}
	return nil
}

func byOrder(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(table + ".sort_order").Order(table + ".id")
	}
}

func preloadDays(db *gorm.DB) *gorm.DB {
	return db.Preload("Days", byOrder("workout_days")).
		Preload("Days.Exercises", byOrder("exercises"))
}

func loadCard(db *gorm.DB, cardID uint64) (*models.WorkoutCard, error) {
	var card models.WorkoutCard
	if err := preloadDays(db).First(&card, cardID).Error; err != nil {
		return nil, storeError(err, "workout card")
	}
	return &card, nil
}

// GetCard loads a card with its days and exercises in order; owner only
func GetCard(db *gorm.DB, cardID, userID uint64) (*models.WorkoutCard, error) {
	card, err := loadCard(db, cardID)
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		return nil, types.Forbidden("you do not have access to this workout card")
	}
	return card, nil
}

func ownedCard(db *gorm.DB, cardID, userID uint64) error {
	var card models.WorkoutCard
	if err := db.Select("id", "user_id").First(&card, cardID).Error; err != nil {
		return storeError(err, "workout card")
	}
	if card.UserID != userID {
		return types.Forbidden("you do not have access to this workout card")
	}
	return nil
}

// CreateCard creates a card with its nested days and exercises in one transaction
func CreateCard(db *gorm.DB, userID uint64, in CardInput) (*models.WorkoutCard, error) {
	name, err := requiredName(in.Name)
	if err != nil {
		return nil, err
	}
	card := models.WorkoutCard{
		Name:        name,
		Description: sanitize.Text(in.Description),
		UserID:      userID,
	}
	for _, d := range in.Days {
		day, err := d.model(0)
		if err != nil {
			return nil, err
		}
		card.Days = append(card.Days, day)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&card).Error
	}); err != nil {
		return nil, storeError(err, "workout card")
	}
	return loadCard(db, card.ID)
}

// ListCards returns the user's cards, oldest first
func ListCards(db *gorm.DB, userID uint64, page Page) ([]models.WorkoutCard, error) {
	cards := []models.WorkoutCard{}
	if err := preloadDays(db).
		Where("user_id = ?", userID).
		Order("id").
		Scopes(page.scope(defaultLimit)).
		Find(&cards).Error; err != nil {
		return nil, storeError(err, "workout card")
	}
	return cards, nil
}

// UpdateCard applies a partial update to a card
func UpdateCard(db *gorm.DB, cardID, userID uint64, upd CardUpdate) (*models.WorkoutCard, error) {
	card, err := GetCard(db, cardID, userID)
	if err != nil {
		return nil, err
	}
	if err := upd.apply(card); err != nil {
		return nil, err
	}
	if err := db.Model(card).Omit("Days").Updates(map[string]any{
		"name":        card.Name,
		"description": card.Description,
	}).Error; err != nil {
		return nil, storeError(err, "workout card")
	}
	return loadCard(db, cardID)
}

// DeleteCard removes a card with its days and exercises
func DeleteCard(db *gorm.DB, cardID, userID uint64) error {
	if err := ownedCard(db, cardID, userID); err != nil {
		return err
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return deleteCardTree(tx, cardID)
	}); err != nil {
		return storeError(err, "workout card")
	}
	return nil
}

func loadDay(db *gorm.DB, cardID, dayID uint64) (*models.WorkoutDay, error) {
	var day models.WorkoutDay
	if err := db.Preload("Exercises", byOrder("exercises")).
		Where("workout_card_id = ?", cardID).
		First(&day, dayID).Error; err != nil {
		return nil, storeError(err, "workout day")
	}
	return &day, nil
}

// AddDay appends a day, with optional exercises, to a card
func AddDay(db *gorm.DB, cardID, userID uint64, in DayInput) (*models.WorkoutDay, error) {
	if err := ownedCard(db, cardID, userID); err != nil {
		return nil, err
	}
	day, err := in.model(cardID)
	if err != nil {
		return nil, err
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&day).Error
	}); err != nil {
		return nil, storeError(err, "workout day")
	}
	return loadDay(db, cardID, day.ID)
}

// UpdateDay applies a partial update to a day
func UpdateDay(db *gorm.DB, cardID, dayID, userID uint64, upd DayUpdate) (*models.WorkoutDay, error) {
	if err := ownedCard(db, cardID, userID); err != nil {
		return nil, err
	}
	day, err := loadDay(db, cardID, dayID)
	if err != nil {
		return nil, err
	}
	if err := upd.apply(day); err != nil {
		return nil, err
	}
	if err := db.Model(day).Omit("Exercises").Updates(map[string]any{
		"name":       day.Name,
		"sort_order": day.Order,
	}).Error; err != nil {
		return nil, storeError(err, "workout day")
	}
	return day, nil
}

// DeleteDay removes a day and its exercises
func DeleteDay(db *gorm.DB, cardID, dayID, userID uint64) error {
	if err := ownedCard(db, cardID, userID); err != nil {
		return err
	}
	if _, err := loadDay(db, cardID, dayID); err != nil {
		return err
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return deleteDayTree(tx, dayID)
	}); err != nil {
		return storeError(err, "workout day")
	}
	return nil
}

func loadExercise(db *gorm.DB, cardID, dayID, exerciseID uint64) (*models.Exercise, error) {
	if _, err := loadDay(db, cardID, dayID); err != nil {
		return nil, err
	}
	var ex models.Exercise
	if err := db.Where("workout_day_id = ?", dayID).First(&ex, exerciseID).Error; err != nil {
		return nil, storeError(err, "exercise")
	}
	return &ex, nil
}

// AddExercise appends an exercise to a day
func AddExercise(db *gorm.DB, cardID, dayID, userID uint64, in ExerciseInput) (*models.Exercise, error) {
	if err := ownedCard(db, cardID, userID); err != nil {
		return nil, err
	}
	if _, err := loadDay(db, cardID, dayID); err != nil {
		return nil, err
	}
	ex, err := in.model(dayID)
	if err != nil {
		return nil, err
	}
	if err := db.Create(&ex).Error; err != nil {
		return nil, storeError(err, "exercise")
	}
	return &ex, nil
}

// UpdateExercise applies a partial update to an exercise
func UpdateExercise(db *gorm.DB, cardID, dayID, exerciseID, userID uint64, upd ExerciseUpdate) (*models.Exercise, error) {
	if err := ownedCard(db, cardID, userID); err != nil {
		return nil, err
	}
	ex, err := loadExercise(db, cardID, dayID, exerciseID)
	if err != nil {
		return nil, err
	}
	if err := upd.apply(ex); err != nil {
		return nil, err
	}
	if err := db.Model(ex).Updates(map[string]any{
		"name":       ex.Name,
		"sets":       ex.Sets,
		"reps":       ex.Reps,
		"load":       ex.Load,
		"note":       ex.Note,
		"sort_order": ex.Order,
	}).Error; err != nil {
		return nil, storeError(err, "exercise")
	}
	return ex, nil
}

// DeleteExercise removes an exercise
func DeleteExercise(db *gorm.DB, cardID, dayID, exerciseID, userID uint64) error {
	if err := ownedCard(db, cardID, userID); err != nil {
		return err
	}
	ex, err := loadExercise(db, cardID, dayID, exerciseID)
	if err != nil {
		return err
	}
	if err := db.Delete(ex).Error; err != nil {
		return storeError(err, "exercise")
	}
	return nil
}
