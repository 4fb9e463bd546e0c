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
	expireName     string
	expireQuantity float64
	expireUnit     string
	expireDate     string
)

var expireCmd = &cobra.Command{
	Use:     "expire",
	Short:   "Track a perishable item's expiry date",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if expireName == "" {
			return fmt.Errorf("--name is required")
		}

		expiry, err := dateparse.ParseDate(expireDate)
		if err != nil {
			return fmt.Errorf("parse --expiry: %w", err)
		}

		store, err := localstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		item := models.PerishableItem{
			ID:         uuid.NewString(),
			Name:       expireName,
			Quantity:   expireQuantity,
			Unit:       expireUnit,
			ExpiryDate: expiry,
			AddedDate:  time.Now().Format("2006-01-02"),
		}
		if err := store.SavePerishableItem(item); err != nil {
			return fmt.Errorf("save perishable item: %w", err)
		}
		fmt.Printf("tracking %s (%s), expires %s\n", item.Name, item.ID, expiry)
		return nil
	},
}

func init() {
	expireCmd.Flags().StringVar(&expireName, "name", "", "item name")
	expireCmd.Flags().Float64Var(&expireQuantity, "quantity", 1, "quantity")
	expireCmd.Flags().StringVar(&expireUnit, "unit", "item", "unit")
	expireCmd.Flags().StringVar(&expireDate, "expiry", "+7d", "expiry date (today, +7d, 2026-03-01, ...)")
}
