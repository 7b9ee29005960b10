package domain

// DashboardStats summarises sales for the admin dashboard. Revenue is in
// minor units of paid orders only.
type DashboardStats struct {
	TotalOrders   int     `json:"total_orders"`
	PaidOrders    int     `json:"paid_orders"`
	TotalRevenue  int64   `json:"total_revenue"`
	TotalProducts int     `json:"total_products"`
	RecentOrders  []Order `json:"recent_orders"`
}

// RecentOrdersLimit is how many paid orders the dashboard lists.
const RecentOrdersLimit = 10
