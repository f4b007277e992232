package models

// Coordinate is a pixel-space bounding box for a detected object instance.
type Coordinate struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectedObject groups all instances of one detected class.
type DetectedObject struct {
	Object      string       `json:"object"`
	Coordinates []Coordinate `json:"coordinates"`
}

// GeoPoint is a decimal-degree location extracted from image metadata.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ImageMetadata holds the privacy-sensitive EXIF fields extracted from an
// upload. All fields are optional; a nil ImageMetadata means the image
// carried no EXIF block at all.
type ImageMetadata struct {
	Model        string    `json:"model,omitempty"`
	Geolocation  *GeoPoint `json:"geolocation,omitempty"`
	OwnerName    string    `json:"owner_name,omitempty"`
	SoftwareUsed string    `json:"software_used,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
}

// DetectedElements is the fixed schema the vision LLM is asked to fill in.
// The payload is untrusted; missing fields simply decode to false.
type DetectedElements struct {
	LocationIndicators bool `json:"location_indicators"`
	Weapons            struct {
		Guns   bool `json:"guns"`
		Knives bool `json:"knives"`
	} `json:"weapons"`
	SensitiveDocuments struct {
		CreditCards  bool `json:"credit_cards"`
		IDCards      bool `json:"id_cards"`
		CarPlates    bool `json:"car_plates"`
		HouseNumbers bool `json:"house_numbers"`
	} `json:"sensitive_documents"`
	Substances struct {
		Alcohol    bool `json:"alcohol"`
		Drugs      bool `json:"drugs"`
		Cigarettes bool `json:"cigarettes"`
	} `json:"substances"`
	PersonalIdentifiers struct {
		Faces bool `json:"faces"`
		Names bool `json:"names"`
	} `json:"personal_identifiers"`
	NSFWContent bool `json:"nsfw_content"`
}

// ThreatReport is the structured threat assessment derived from the vision
// LLM. ThreatScore and ThreatLevel are recomputed locally from
// DetectedElements rather than trusted from the model output.
type ThreatReport struct {
	ThreatLevel      string           `json:"threat_level"`
	Reasons          []string         `json:"reasons"`
	ThreatScore      int              `json:"threat_score"`
	DetectedElements DetectedElements `json:"detected_elements"`
}
