package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/middleware"
	"github.com/localnerve/gestionale/internal/services"
	"gorm.io/gorm"
)

// GymHandler serves workout cards. Every route is owner only.
type GymHandler struct {
	DB *gorm.DB
}

// cardPath reads the ids shared by the nested gym routes
type cardPath struct {
	userID, cardID, dayID, exerciseID uint64
}

func (h *GymHandler) path(c *fiber.Ctx, params ...string) (cardPath, error) {
	var p cardPath
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return p, err
	}
	p.userID = user.ID
	for _, name := range params {
		id, err := parseID(c, name)
		if err != nil {
			return p, err
		}
		switch name {
		case "id":
			p.cardID = id
		case "day_id":
			p.dayID = id
		case "exercise_id":
			p.exerciseID = id
		}
	}
	return p, nil
}

// CreateCard handles POST /api/gym/cards
// @Summary Create workout card
// @Tags Gym
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CardInput true "Card with days and exercises"
// @Success 201 {object} models.WorkoutCard
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /gym/cards [post]
func (h *GymHandler) CreateCard(c *fiber.Ctx) error {
	p, err := h.path(c)
	if err != nil {
		return err
	}
	var in services.CardInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	card, err := services.CreateCard(h.DB, p.userID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

// ListCards handles GET /api/gym/cards
// @Summary List workout cards
// @Tags Gym
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {array} models.WorkoutCard
// @Router /gym/cards [get]
func (h *GymHandler) ListCards(c *fiber.Ctx) error {
	p, err := h.path(c)
	if err != nil {
		return err
	}
	cards, err := services.ListCards(h.DB, p.userID, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(cards)
}

// GetCard handles GET /api/gym/cards/:id
// @Summary Get workout card
// @Tags Gym
// @Produce json
// @Security BearerAuth
// @Param id path int true "Card ID"
// @Success 200 {object} models.WorkoutCard
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /gym/cards/{id} [get]
func (h *GymHandler) GetCard(c *fiber.Ctx) error {
	p, err := h.path(c, "id")
	if err != nil {
		return err
	}
	card, err := services.GetCard(h.DB, p.cardID, p.userID)
	if err != nil {
		return err
	}
	return c.JSON(card)
}

// UpdateCard handles PUT /api/gym/cards/:id
// @Summary Update workout card
// @Tags Gym
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Card ID"
// @Param body body services.CardUpdate true "Fields to change"
// @Success 200 {object} models.WorkoutCard
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /gym/cards/{id} [put]
func (h *GymHandler) UpdateCard(c *fiber.Ctx) error {
	p, err := h.path(c, "id")
	if err != nil {
		return err
	}
	var upd services.CardUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	card, err := services.UpdateCard(h.DB, p.cardID, p.userID, upd)
	if err != nil {
		return err
	}
	return c.JSON(card)
}

// DeleteCard handles DELETE /api/gym/cards/:id
// @Summary Delete workout card
// @Tags Gym
// @Security BearerAuth
// @Param id path int true "Card ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /gym/cards/{id} [delete]
func (h *GymHandler) DeleteCard(c *fiber.Ctx) error {
	p, err := h.path(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteCard(h.DB, p.cardID, p.userID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddDay handles POST /api/gym/cards/:id/days
// @Summary Add workout day
// @Tags Gym
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Card ID"
// @Param body body services.DayInput true "Day"
// @Success 201 {object} models.WorkoutDay
// @Router /gym/cards/{id}/days [post]
func (h *GymHandler) AddDay(c *fiber.Ctx) error {
	p, err := h.path(c, "id")
	if err != nil {
		return err
	}
	var in services.DayInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	day, err := services.AddDay(h.DB, p.cardID, p.userID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(day)
}

// UpdateDay handles PUT /api/gym/cards/:id/days/:day_id
// @Summary Update workout day
// @Tags Gym
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Card ID"
// @Param day_id path int true "Day ID"
// @Param body body services.DayUpdate true "Fields to change"
// @Success 200 {object} models.WorkoutDay
// @Router /gym/cards/{id}/days/{day_id} [put]
func (h *GymHandler) UpdateDay(c *fiber.Ctx) error {
	p, err := h.path(c, "id", "day_id")
	if err != nil {
		return err
	}
	var upd services.DayUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	day, err := services.UpdateDay(h.DB, p.cardID, p.dayID, p.userID, upd)
	if err != nil {
		return err
	}
	return c.JSON(day)
}

// DeleteDay handles DELETE /api/gym/cards/:id/days/:day_id
// @Summary Delete workout day
// @Tags Gym
// @Security BearerAuth
// @Param id path int true "Card ID"
// @Param day_id path int true "Day ID"
// @Success 204
// @Router /gym/cards/{id}/days/{day_id} [delete]
func (h *GymHandler) DeleteDay(c *fiber.Ctx) error {
	p, err := h.path(c, "id", "day_id")
	if err != nil {
		return err
	}
	if err := services.DeleteDay(h.DB, p.cardID, p.dayID, p.userID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddExercise handles POST /api/gym/cards/:id/days/:day_id/exercises
// @Summary Add exercise
// @Tags Gym
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Card ID"
// @Param day_id path int true "Day ID"
// @Param body body services.ExerciseInput true "Exercise"
// @Success 201 {object} models.Exercise
// @Router /gym/cards/{id}/days/{day_id}/exercises [post]
func (h *GymHandler) AddExercise(c *fiber.Ctx) error {
	p, err := h.path(c, "id", "day_id")
	if err != nil {
		return err
	}
	var in services.ExerciseInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	ex, err := services.AddExercise(h.DB, p.cardID, p.dayID, p.userID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ex)
}

// UpdateExercise handles PUT /api/gym/cards/:id/days/:day_id/exercises/:exercise_id
// @Summary Update exercise
// @Tags Gym
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Card ID"
// @Param day_id path int true "Day ID"
// @Param exercise_id path int true "Exercise ID"
// @Param body body services.ExerciseUpdate true "Fields to change"
// @Success 200 {object} models.Exercise
// @Router /gym/cards/{id}/days/{day_id}/exercises/{exercise_id} [put]
func (h *GymHandler) UpdateExercise(c *fiber.Ctx) error {
	p, err := h.path(c, "id", "day_id", "exercise_id")
	if err != nil {
		return err
	}
	var upd services.ExerciseUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	ex, err := services.UpdateExercise(h.DB, p.cardID, p.dayID, p.exerciseID, p.userID, upd)
	if err != nil {
		return err
	}
	return c.JSON(ex)
}

// DeleteExercise handles DELETE /api/gym/cards/:id/days/:day_id/exercises/:exercise_id
// @Summary Delete exercise
// @Tags Gym
// @Security BearerAuth
// @Param id path int true "Card ID"
// @Param day_id path int true "Day ID"
// @Param exercise_id path int true "Exercise ID"
// @Success 204
// @Router /gym/cards/{id}/days/{day_id}/exercises/{exercise_id} [delete]
func (h *GymHandler) DeleteExercise(c *fiber.Ctx) error {
	p, err := h.path(c, "id", "day_id", "exercise_id")
	if err != nil {
		return err
	}
	if err := services.DeleteExercise(h.DB, p.cardID, p.dayID, p.exerciseID, p.userID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
