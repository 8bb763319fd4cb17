package services

import (
	"math"

	"sales-dashboard/internal/models"
)

const (
	deliveredStatus   = "Delivered"
	satisfiedMinScore = 4
)

// monthOrder maps the three-letter month abbreviation to its calendar index.
// The monthly aggregate is sorted by this table, never lexically.
var monthOrder = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

func enrich(tx *models.Transaction) {
	tx.Month = int(tx.Date.Month())
	tx.MonthName = tx.Date.Format("Jan")
	tx.Quarter = (tx.Month-1)/3 + 1

	tx.DeliveredFlag = 0
	if tx.DeliveryStatus == deliveredStatus {
		tx.DeliveredFlag = 1
	}

	tx.Satisfied = 0
	if tx.ReviewRating >= satisfiedMinScore {
		tx.Satisfied = 1
	}

	tx.LogTotalSales = math.Log(tx.TotalSalesINR + 1)
}
