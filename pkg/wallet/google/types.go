package google

// FrontFieldPath names the text modules rendered on the front of the card.
type FrontFieldPath string

const (
	PrimaryLeft    FrontFieldPath = "primaryLeft"
	PrimaryRight   FrontFieldPath = "primaryRight"
	SecondaryLeft  FrontFieldPath = "secondaryLeft"
	SecondaryRight FrontFieldPath = "secondaryRight"
)

// TextModule is a text module keyed by ID.
type TextModule struct {
	ID     string `json:"id"`
	Header string `json:"header"`
	Body   string `json:"body"`
}

// LinkModule is a link module entry keyed by ID.
type LinkModule struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	Description string `json:"description"`
}

// Barcode is rendered as a QR code.
type Barcode struct {
	Value           string `json:"value"`
	AlternativeText string `json:"alternativeText"`
}

// IssueProps is the full content of a new generic object.
type IssueProps struct {
	LogoURI            string       `json:"logoUri"`
	HeroURI            string       `json:"heroUri"`
	CardTitle          string       `json:"cardTitle"`
	Header             string       `json:"header"`
	Subheader          string       `json:"subheader"`
	HexBackgroundColor string       `json:"hexBackgroundColor"`
	TextModulesData    []TextModule `json:"textModulesData"`
	LinksModuleData    []LinkModule `json:"linksModuleData"`
	Barcode            Barcode      `json:"barcode"`
}

// UpdateProps is a partial patch; empty strings and nil slices mean "keep".
type UpdateProps struct {
	LogoURI         string       `json:"logoUri,omitempty"`
	HeroURI         string       `json:"heroUri,omitempty"`
	CardTitle       string       `json:"cardTitle,omitempty"`
	Header          string       `json:"header,omitempty"`
	Subheader       string       `json:"subheader,omitempty"`
	TextModulesData []TextModule `json:"textModulesData,omitempty"`
	LinksModuleData []LinkModule `json:"linksModuleData,omitempty"`
}

// Credentials is the subset of a service account key used to sign save links.
type Credentials struct {
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	ClientID    string `json:"client_id"`
	AuthURI     string `json:"auth_uri"`
	TokenURI    string `json:"token_uri"`
}
