package models

// Sentinel values used when a source page is missing a field.
const (
	NotAvailable = "N/A"
	NoRating     = "No Rating"
	Unknown      = "unknown"
)

// RawListing is a single offer exactly as a source adapter extracted it,
// before any currency conversion or URL clean-up.
type RawListing struct {
	Title     string
	RawPrice  string // e.g. "$5.51", "72 000 FCFA", "12,99 €"
	OldPrice  string
	Rating    string
	Href      string // may be relative to the source's base URL
	ImageURL  string
	ShipPrice string // delivery / hidden fee text, if the source shows one
}

// Listing is the canonical, normalized form of a product offer shared by
// every source. All prices are in the reporting currency.
type Listing struct {
	Description  string `json:"description"`
	DisplayPrice string `json:"price"`
	OldPrice     string `json:"old_price,omitempty"`
	HiddenFees   string `json:"hiddenFees,omitempty"`
	Rating       string `json:"rating"`
	ProductURL   string `json:"productURL"`
	ImageURL     string `json:"imageURL"`
	Source       string `json:"source"`
	SourceLogo   string `json:"sourceLogo"`
}

// HasURL reports whether the listing carries a usable identity key.
func (l Listing) HasURL() bool {
	return l.ProductURL != "" && l.ProductURL != NotAvailable
}
