package flow

// Controls of the booking site, by page.
const (
	selOrigin          = "#origin input"
	selDestination     = "#destination input"
	selSuggestion      = "#p-highlighted-option"
	selDateInput       = "div.col-md-5 > div.ui-float-label input"
	selCalendarMonth   = ".ui-datepicker-month"
	selCalendarYear    = ".ui-datepicker-year"
	selCalendarNext    = ".ui-datepicker-next"
	selCalendarDays    = ".ui-datepicker-calendar td a"
	selQuotaDropdown   = "form > div:nth-of-type(3) div.ui-dropdown-trigger > span"
	selQuotaOption     = "li"
	selSearchSubmit    = `button[type="submit"]`
	textNoTrains       = "No trains found"
	selTrainContainers = `app-train-avl-enq, [class*="train"], .trainlist-table tr, .search-result`
	selClassContainer  = "div.ng-star-inserted > div:nth-child(5) > div.white-back.col-xs-12.ng-star-inserted"
	selClassLabels     = "div.pre-avl"
	selClassCell       = "table tr td:nth-child(%d) div div.col-xs-12.link span"
	selDateCells       = ".pre-avl"
	selAvailability    = ".AVAILABLE"
	textAvailable      = "AVAILABLE"
	selBookNow         = "div.col-xs-12 > div > span > span:nth-child(1) > button"
	selPassengerName   = `input[placeholder*="Name"]`
	selPassengerAge    = `input[type="number"]`
	selSelects         = "select"
	textAddPassenger   = "Add Passenger"
	selMobile          = "#mobileNumber"
	selPaymentLabel    = "label"
	selRadio           = `input[type="radio"]`
	selContinue        = "button.train_Search"
	selCaptcha         = `input[id*="captcha"], input[id*="Captcha"]`
)
