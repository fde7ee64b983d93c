// Package directory defines the input contract between the crawler and the
// atlas build pipeline: the directory's own node listing plus each node's
// self-reported peer lists.
package directory

// NodeRecord is one entry from the network's directory service.
//
// Collateral, when present, is the durable identity token and becomes the
// node's canonical id. Without it the normalized host address is used, which
// can collide when several nodes sit behind one address translator.
type NodeRecord struct {
	Address        string `json:"address"`
	Collateral     string `json:"collateral,omitempty"`
	Tier           string `json:"tier"`
	Status         string `json:"status"`
	PaymentAddress string `json:"paymentAddress,omitempty"`
	ConfirmHeight  int64  `json:"confirmHeight,omitempty"`
}

// Bandwidth is a node's self-benchmarked transfer capacity in Mbit/s.
type Bandwidth struct {
	DownloadSpeed float64 `json:"download_speed"`
	UploadSpeed   float64 `json:"upload_speed"`
}

// PeerReport is everything the crawler learned about one primary node.
// An unreachable node yields a report with empty peer lists.
type PeerReport struct {
	Node          NodeRecord `json:"node"`
	OutgoingPeers []string   `json:"outgoingPeers"`
	IncomingPeers []string   `json:"incomingPeers"`
	Arcane        bool       `json:"arcane,omitempty"`
	Bandwidth     *Bandwidth `json:"bandwidth,omitempty"`
	Unreachable   bool       `json:"unreachable,omitempty"`
}

// Total returns download+upload, the quantity blended into the composite
// importance weight.
func (b *Bandwidth) Total() float64 {
	if b == nil {
		return 0
	}
	return b.DownloadSpeed + b.UploadSpeed
}
