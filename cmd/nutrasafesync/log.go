package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/dateparse"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

var (
	logFoodName string
	logServing  float64
	logUnit     string
	logCalories float64
	logProtein  float64
	logCarbs    float64
	logFat      float64
	logMeal     string
	logConsumed string
)

var logCmd = &cobra.Command{
	Use:     "log",
	Short:   "Record a food log entry",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if logFoodName == "" {
			return fmt.Errorf("--food is required")
		}

		consumed, err := dateparse.ParseDate(logConsumed)
		if err != nil {
			return fmt.Errorf("parse --consumed: %w", err)
		}

		store, err := localstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		entry := models.FoodLogEntry{
			ID:           uuid.NewString(),
			FoodName:     logFoodName,
			ServingSize:  logServing,
			ServingUnit:  logUnit,
			Calories:     logCalories,
			ProteinG:     logProtein,
			CarbsG:       logCarbs,
			FatG:         logFat,
			MealType:     logMeal,
			ConsumedDate: consumed,
			LoggedAt:     time.Now().Unix(),
		}
		if err := store.SaveFoodLogEntry(entry); err != nil {
			return fmt.Errorf("save food log entry: %w", err)
		}
		fmt.Printf("logged %s (%s) for %s\n", entry.FoodName, entry.ID, consumed)
		return nil
	},
}

func init() {
	logCmd.Flags().StringVar(&logFoodName, "food", "", "food name")
	logCmd.Flags().Float64Var(&logServing, "serving", 1, "serving size")
	logCmd.Flags().StringVar(&logUnit, "unit", "serving", "serving unit")
	logCmd.Flags().Float64Var(&logCalories, "calories", 0, "calories")
	logCmd.Flags().Float64Var(&logProtein, "protein", 0, "protein in grams")
	logCmd.Flags().Float64Var(&logCarbs, "carbs", 0, "carbohydrates in grams")
	logCmd.Flags().Float64Var(&logFat, "fat", 0, "fat in grams")
	logCmd.Flags().StringVar(&logMeal, "meal", "snack", "meal type (breakfast, lunch, dinner, snack)")
	logCmd.Flags().StringVar(&logConsumed, "consumed", "today", "date consumed (today, tomorrow, +2d, 2026-03-01, ...)")
}
