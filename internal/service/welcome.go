package service

import (
	"time"

	"taskflow/internal/category"
	"taskflow/internal/model"
)

// welcomeTasks are the starter tasks given to every new account. They still
// use legacy category literals, which reconciliation bridges by name.
func welcomeTasks(now time.Time) []model.Task {
	tomorrow := now.AddDate(0, 0, 1)
	nextWeek := now.AddDate(0, 0, 7)

	return []model.Task{
		{
			Title:       "Bienvenue sur TaskFlow ! 👋",
			Description: "Découvrez votre nouvelle application de gestion de tâches",
			CreatedAt:   now,
			Category:    string(category.LegacyPersonal),
			Priority:    model.PriorityMedium,
		},
		{
			Title:       "Personnaliser mon profil",
			Description: "Ajoutez vos informations personnelles",
			CreatedAt:   now,
			Category:    string(category.LegacyPersonal),
			Priority:    model.PriorityLow,
		},
		{
			Title:       "Explorer les fonctionnalités de l'application",
			Description: "Découvrez comment ajouter, modifier et organiser vos tâches",
			CreatedAt:   now,
			Category:    string(category.LegacyPersonal),
			Priority:    model.PriorityHigh,
		},
		{
			Title:       "Créer ma première tâche importante",
			Description: "Ajoutez une tâche avec une date d'échéance et une priorité",
			CreatedAt:   tomorrow,
			Category:    string(category.LegacyWork),
			Priority:    model.PriorityHigh,
			DueDate:     &tomorrow,
		},
		{
			Title:       "Organiser mes catégories",
			Description: "Créez des catégories pour mieux organiser vos tâches",
			CreatedAt:   nextWeek,
			Category:    string(category.LegacyPersonal),
			Priority:    model.PriorityMedium,
			DueDate:     &nextWeek,
		},
	}
}
