package portal

// Booking list.
const (
	bookingCardSelector = `a[class^="BookingListView__contents-user"]`

	regionName       = "name"
	regionPhone      = "phone"
	regionBookNumber = "book-number"
	regionBookDate   = "book-date"
	regionHost       = "host"
	regionOption     = "option"
	regionComment    = "comment"
	regionTotalPrice = "total-price"
	regionState      = "state"
)

func regionSelector(key string) string {
	return `div[class*="BookingListView__` + key + `"]`
}

// Simple-management calendar.
const (
	PeriodAnchorSelector = `a[class^="DatePeriodCalendar__date-info"]`
	NextPeriodSelector   = `button[class*="DatePeriodCalendar__next"]`

	GridBodySelector  = `div[class*="SimpleManagement__management-tbody"]`
	GridRowSelector   = `:scope > div[class*="SimpleManagement__management-row"]`
	GridCellSelector  = `:scope > div[class*="SimpleManagement__content"]`
	CellInnerSelector = "div"
	CellInputSelector = "input"
)

// Login page.
const (
	LoginButtonSelector = `#log\.login`
)
