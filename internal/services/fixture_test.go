package services

import "ecommerce-dashboard/internal/models"

func fact(ym, wk, status, fulfillment, category, state string, promo bool, orders int64, qty, amount float64) models.FactRow {
	return models.FactRow{
		YearMonth:   ym,
		YearWeek:    wk,
		Status:      status,
		Fulfillment: fulfillment,
		Category:    category,
		State:       state,
		IsPromotion: promo,
		OrderCount:  orders,
		Qty:         qty,
		Amount:      amount,
	}
}

// salesFixture spans three months (2022-03..2022-05) and five weeks.
func salesFixture() []models.FactRow {
	return []models.FactRow{
		fact("2022-03", "2022-03-28/2022-04-03", "Shipped", "Amazon", "Set", "Maharashtra", false, 2, 2, 100),
		fact("2022-04", "2022-04-04/2022-04-10", "Shipped - Delivered to Buyer", "Amazon", "Kurta", "Maharashtra", true, 1, 1, 200),
		fact("2022-04", "2022-04-11/2022-04-17", "Cancelled", "Merchant", "Set", "Karnataka", false, 1, 1, 0),
		fact("2022-05", "2022-05-02/2022-05-08", "Shipped", "Amazon", "Kurta", "Karnataka", false, 3, 3, 300),
		fact("2022-05", "2022-05-09/2022-05-15", "Pending", "Merchant", "Western Dress", "Delhi", true, 1, 2, 150),
	}
}

func fixtureDataset() *Dataset {
	boundaries := []models.Boundary{
		{State: "Maharashtra"},
		{State: "Karnataka"},
		{State: "Goa"},
	}
	return NewDataset(salesFixture(), boundaries)
}
