package database

import (
	"divehub-api/internal/models"
)

// GetActivePlan gets an active plan by its plan id
func GetActivePlan(planID string) (*models.Plan, error) {
	var plan models.Plan
	err := DB.Where("plan_id = ? AND is_active = ?", planID, true).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetActivePlans lists all purchasable plans
func GetActivePlans() ([]models.Plan, error) {
	var plans []models.Plan
	err := DB.Where("is_active = ?", true).Order("price_minor ASC").Find(&plans).Error
	return plans, err
}
