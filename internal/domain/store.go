package domain

// Store identifies a supported storefront.
type Store string

const (
	StoreSteam     Store = "STEAM"
	StoreEpic      Store = "EPIC"
	StoreGOG       Store = "GOG"
	StoreHumble    Store = "HUMBLE"
	StoreFanatical Store = "FANATICAL"
)

// AllStores lists every supported storefront in a stable order.
func AllStores() []Store {
	return []Store{StoreSteam, StoreEpic, StoreGOG, StoreHumble, StoreFanatical}
}

// ValidStore reports whether s is a known storefront.
func ValidStore(s Store) bool {
	switch s {
	case StoreSteam, StoreEpic, StoreGOG, StoreHumble, StoreFanatical:
		return true
	default:
		return false
	}
}
