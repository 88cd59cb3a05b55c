package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/tests/helpers"
)

func TestWorkoutCards(t *testing.T) {
	ta := helpers.NewTestApp(t)
	anna := newAccount(t, ta, "Anna")
	bruno := newAccount(t, ta, "Bruno")

	sets := 4
	resp := do(t, ta, http.MethodPost, "/api/gym/cards", anna, map[string]any{
		"name": "Forza",
		"days": []map[string]any{
			{"name": "Giorno B", "order": 2},
			{"name": "Giorno A", "order": 1, "exercises": []map[string]any{
				{"name": "Squat", "sets": sets, "reps": "5", "load": "100kg", "order": 1},
				{"name": "Panca", "sets": sets, "reps": "8", "order": 0},
			}},
		},
	})
	helpers.AssertStatus(t, resp, fiber.StatusCreated)
	var card models.WorkoutCard
	helpers.ParseJSON(t, resp, &card)
	if len(card.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(card.Days))
	}
	if card.Days[0].Name != "Giorno A" || card.Days[1].Name != "Giorno B" {
		t.Errorf("days must be ordered by order, got %s, %s", card.Days[0].Name, card.Days[1].Name)
	}
	dayA := card.Days[0]
	if len(dayA.Exercises) != 2 || dayA.Exercises[0].Name != "Panca" {
		t.Errorf("exercises must be ordered by order, got %+v", dayA.Exercises)
	}

	resp = do(t, ta, http.MethodGet, path("/api/gym/cards/%d", card.ID), bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusForbidden)
	resp.Body.Close()

	resp = do(t, ta, http.MethodGet, "/api/gym/cards", bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var cards []models.WorkoutCard
	helpers.ParseJSON(t, resp, &cards)
	if len(cards) != 0 {
		t.Errorf("cards are private, got %d", len(cards))
	}

	resp = do(t, ta, http.MethodPut, path("/api/gym/cards/%d", card.ID), anna, map[string]string{"description": "Mesociclo 1"})
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	helpers.ParseJSON(t, resp, &card)
	if card.Description != "Mesociclo 1" || card.Name != "Forza" {
		t.Errorf("partial update failed: %+v", card)
	}

	// Days and exercises
	resp = do(t, ta, http.MethodPost, path("/api/gym/cards/%d/days", card.ID), anna, map[string]any{"name": "Giorno C", "order": 3})
	helpers.AssertStatus(t, resp, fiber.StatusCreated)
	var dayC models.WorkoutDay
	helpers.ParseJSON(t, resp, &dayC)

	resp = do(t, ta, http.MethodPut, path("/api/gym/cards/%d/days/%d", card.ID, dayC.ID), anna, map[string]any{"name": "Giorno C bis"})
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	resp = do(t, ta, http.MethodPost, path("/api/gym/cards/%d/days/%d/exercises", card.ID, dayC.ID), anna, map[string]any{"name": "Stacco", "reps": "3"})
	helpers.AssertStatus(t, resp, fiber.StatusCreated)
	var ex models.Exercise
	helpers.ParseJSON(t, resp, &ex)
	if ex.WorkoutDayID != dayC.ID {
		t.Errorf("exercise attached to day %d, want %d", ex.WorkoutDayID, dayC.ID)
	}

	resp = do(t, ta, http.MethodPut, path("/api/gym/cards/%d/days/%d/exercises/%d", card.ID, dayC.ID, ex.ID), anna, map[string]any{"load": "140kg"})
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	helpers.ParseJSON(t, resp, &ex)
	if ex.Load != "140kg" || ex.Reps != "3" {
		t.Errorf("partial exercise update failed: %+v", ex)
	}

	// An exercise addressed through the wrong day is not found
	resp = do(t, ta, http.MethodPut, path("/api/gym/cards/%d/days/%d/exercises/%d", card.ID, dayA.ID, ex.ID), anna, map[string]any{"load": "1kg"})
	helpers.AssertStatus(t, resp, fiber.StatusNotFound)
	resp.Body.Close()

	resp = do(t, ta, http.MethodPost, path("/api/gym/cards/%d/days/%d/exercises", card.ID, dayC.ID), bruno, map[string]any{"name": "Curl"})
	helpers.AssertStatus(t, resp, fiber.StatusForbidden)
	resp.Body.Close()

	resp = do(t, ta, http.MethodDelete, path("/api/gym/cards/%d/days/%d/exercises/%d", card.ID, dayC.ID, ex.ID), anna, nil)
	helpers.AssertNoContent(t, resp)

	resp = do(t, ta, http.MethodDelete, path("/api/gym/cards/%d/days/%d", card.ID, dayA.ID), anna, nil)
	helpers.AssertNoContent(t, resp)
	var remaining int64
	ta.DB.Model(&models.Exercise{}).Where("workout_day_id = ?", dayA.ID).Count(&remaining)
	if remaining != 0 {
		t.Errorf("deleting a day removes its exercises, %d left", remaining)
	}

	resp = do(t, ta, http.MethodDelete, path("/api/gym/cards/%d", card.ID), bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusForbidden)
	resp.Body.Close()
	resp = do(t, ta, http.MethodDelete, path("/api/gym/cards/%d", card.ID), anna, nil)
	helpers.AssertNoContent(t, resp)
	resp = do(t, ta, http.MethodGet, path("/api/gym/cards/%d", card.ID), anna, nil)
	helpers.AssertStatus(t, resp, fiber.StatusNotFound)
}

func TestCreateCardRequiresName(t *testing.T) {
	ta := helpers.NewTestApp(t)
	anna := newAccount(t, ta, "Anna")

	resp := do(t, ta, http.MethodPost, "/api/gym/cards", anna, map[string]any{
		"name": "Forza",
		"days": []map[string]any{{"name": ""}},
	})
	helpers.AssertStatus(t, resp, fiber.StatusBadRequest)
	resp.Body.Close()

	resp = do(t, ta, http.MethodPost, "/api/gym/cards", anna, map[string]any{"name": ""})
	helpers.AssertStatus(t, resp, fiber.StatusBadRequest)
}
