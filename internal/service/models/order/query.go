package order

// QueryOrdersModel represents filter parameters for querying orders
// DailyStats are the aggregates of one business day.
type DailyStats struct {
	OrdersCount            int64   `json:"ordersCount"`
	SalesTotalCents        int64   `json:"salesTotalCents"`
	AvgResponseTimeSeconds float64 `json:"avgResponseTimeSeconds"`
}

type QueryOrdersModel struct {
	BusinessID int64  `json:"businessId"`
	Status     Status `json:"status,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
