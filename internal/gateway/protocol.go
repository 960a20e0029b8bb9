package gateway

// Client → server message. Type selects the operation; the remaining
// fields are per-type.
type ClientMsg struct {
	Type    string `json:"type"`              // hello, availability, vend, restock
	Actor   string `json:"actor,omitempty"`   // hello
	Machine string `json:"machine,omitempty"` // availability, vend, restock
	Slot    int    `json:"slot"`              // vend
	Serial  string `json:"serial,omitempty"`  // restock
}

const (
	MsgHello        = "hello"
	MsgAvailability = "availability"
	MsgVend         = "vend"
	MsgRestock      = "restock"
)

// StockRowMsg is one availability row on the wire. Vendable folds in
// the requesting actor's cooldown state so the client can grey out
// slots without a second round trip.
type StockRowMsg struct {
	Item      string `json:"item"`
	Remaining int32  `json:"remaining"`
	Vendable  bool   `json:"vendable"`
}

// WelcomeMsg acknowledges a hello.
type WelcomeMsg struct {
	Type  string `json:"type"` // "welcome"
	Actor string `json:"actor"`
}

// AvailabilityMsg answers an availability request.
type AvailabilityMsg struct {
	Type    string        `json:"type"` // "availability"
	Machine string        `json:"machine"`
	Rows    []StockRowMsg `json:"rows"`
}

// VendResultMsg answers a vend request.
type VendResultMsg struct {
	Type    string `json:"type"` // "vend_result"
	Machine string `json:"machine"`
	Slot    int    `json:"slot"`
	Result  string `json:"result"` // Rejected, CooldownActive, Success
	Item    string `json:"item,omitempty"`
}

// RestockResultMsg answers a restock request.
type RestockResultMsg struct {
	Type    string `json:"type"` // "restock_result"
	Machine string `json:"machine"`
	OK      bool   `json:"ok"`
}

// ErrorMsg reports a request the gateway could not route.
type ErrorMsg struct {
	Type   string `json:"type"` // "error"
	Reason string `json:"reason"`
}

// ItemVendedMsg is broadcast to every connected client when a machine
// dispenses an item, carrying the opaque eject tag for client-side
// presentation.
type ItemVendedMsg struct {
	Type    string `json:"type"` // "item_vended"
	Machine string `json:"machine"`
	Item    string `json:"item"`
	Eject   string `json:"eject"`
}

// RestockUsedMsg is broadcast when a restock cartridge is accepted.
type RestockUsedMsg struct {
	Type    string `json:"type"` // "restock_used"
	Machine string `json:"machine"`
}
