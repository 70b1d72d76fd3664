package db

var (
	Users    = &UserOperations{}
	Orders   = &OrderOperations{}
	Filaments = &FilamentOperations{}
	Printers = &PrinterOperations{}
	Prints   = &PrintOperations{}
	Profiles = &ProfileOperations{}
	Stats    = &StatsOperations{}
)
