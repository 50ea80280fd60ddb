package retention

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Deletion certificates carry a content hash that third parties can
// recompute: SHA-256 over the canonical JSON of the certificate's
// substantive fields, with report IDs sorted and timestamps in RFC3339Nano
// UTC. CertificateID and IssuedAt are excluded so the hash depends only on
// what was deleted, by whom, and under which regime. The canonical field
// order is fixed by certificateContent below and must stay stable across
// versions.

// certificateContent is the canonical serialization the hash covers.
type certificateContent struct {
	ProjectID          string         `json:"projectId"`
	ReportIDs          []string       `json:"reportIds"`
	DeletedAt          string         `json:"deletedAt"`
	DeletedBy          string         `json:"deletedBy"`
	Reason             string         `json:"reason"`
	DataClassification Classification `json:"dataClassification"`
	ComplianceRegion   Region         `json:"complianceRegion"`
}

// Generator issues deletion certificates.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a new certificate generator.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Issue produces a deletion certificate for the given hard deletion.
func (g *Generator) Issue(projectID string, reportIDs []string, deletedBy, reason string, class Classification, region Region) DeletionCertificate {
	now := g.now().UTC()

	cert := DeletionCertificate{
		CertificateID:      "cert_" + uuid.New().String(),
		ProjectID:          projectID,
		ReportIDs:          sortedCopy(reportIDs),
		DeletedAt:          now,
		DeletedBy:          deletedBy,
		Reason:             reason,
		DataClassification: class,
		ComplianceRegion:   region,
		IssuedAt:           now,
	}
	cert.VerificationHash = contentHash(cert)
	return cert
}

// Verify recomputes the certificate's content hash and reports whether it
// matches the stored one.
func (g *Generator) Verify(cert DeletionCertificate) bool {
	return contentHash(cert) == cert.VerificationHash
}

func contentHash(cert DeletionCertificate) string {
	content := certificateContent{
		ProjectID:          cert.ProjectID,
		ReportIDs:          sortedCopy(cert.ReportIDs),
		DeletedAt:          cert.DeletedAt.UTC().Format(time.RFC3339Nano),
		DeletedBy:          cert.DeletedBy,
		Reason:             cert.Reason,
		DataClassification: cert.DataClassification,
		ComplianceRegion:   cert.ComplianceRegion,
	}

	// Struct field order is fixed, so encoding/json is canonical here.
	payload, _ := json.Marshal(content)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
