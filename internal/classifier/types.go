package classifier

// Confidence grades how reliable a detected signal is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// SignalKind identifies a family of location evidence. Each kind maps to a
// data modality an extraction pipeline would need to handle.
type SignalKind string

const (
	SignalIndexPage      SignalKind = "INDEX_PAGE"
	SignalAddressList    SignalKind = "ADDRESS_LIST"
	SignalAddressPair    SignalKind = "ADDRESS_PAIR"
	SignalCoordinateData SignalKind = "COORDINATE_DATA"
	SignalMapsEmbed      SignalKind = "GOOGLE_MAPS_EMBED"
	SignalMapsLink       SignalKind = "GOOGLE_MAPS_LINK"
	SignalMapsAPI        SignalKind = "GOOGLE_MAPS_API"
	SignalLocationFinder SignalKind = "LOCATION_FINDER"
	SignalLocationSearch SignalKind = "LOCATION_SEARCH"
	SignalURLContext     SignalKind = "URL_CONTEXT"
	SignalJSONLD         SignalKind = "JSON_LD_LOCATIONS"
	SignalMapMapbox      SignalKind = "MAP_MAPBOX"
	SignalMapLeaflet     SignalKind = "MAP_LEAFLET"
	SignalMapArcGIS      SignalKind = "MAP_ARCGIS"
	SignalLocationIframe SignalKind = "LOCATION_IFRAME"
	SignalPDFServiceMap  SignalKind = "PDF_SERVICEMAP"
	SignalPDFLocations   SignalKind = "PDF_LOCATIONS"
	SignalLowValuePage   SignalKind = "LOW_VALUE_PAGE"
	SignalNonUSPath      SignalKind = "NON_US_PATH"
	SignalDisqualified   SignalKind = "DISQUALIFIED"
	SignalNoContent      SignalKind = "NO_LOCATION_CONTENT"
)

// Signal is one piece of location evidence found on a page.
type Signal struct {
	Kind       SignalKind `json:"kind"`
	Confidence Confidence `json:"confidence"`
	Points     int        `json:"points"`
	Detail     string     `json:"detail,omitempty"`
	Evidence   string     `json:"evidence,omitempty"`
}

// PageClassification is the scored verdict for one page.
type PageClassification struct {
	URL      string   `json:"url"`
	Title    string   `json:"title,omitempty"`
	Score    int      `json:"score"`
	Accepted bool     `json:"accepted"`
	Signals  []Signal `json:"signals"`
}

// SiteReport aggregates page classifications for one carrier site.
type SiteReport struct {
	Carrier        string               `json:"carrier_name"`
	Domain         string               `json:"domain"`
	TotalPages     int                  `json:"total_pages"`
	LocationPages  int                  `json:"location_pages"`
	ModalityCounts map[string]int       `json:"modalities_found"`
	TopPages       []PageClassification `json:"top_pages"`
	Recommendation string               `json:"recommended_approach"`
}
