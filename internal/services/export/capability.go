package export

import (
	"sync"

	"github.com/thebunny221/smartcms-export/internal/interfaces"
	"github.com/thebunny221/smartcms-export/internal/models"
)

// prober is implemented by generators whose encoder can fail to initialize
// (font packs, workbook assembly). Generators without it are always offered.
type prober interface {
	Probe() error
}

// capabilityProbe checks each registered generator once and caches the
// outcome for the life of the process. CSV has no encoder dependency and is
// always offered, which also makes it the fallback suggestion when another
// format's encoder is unusable.
type capabilityProbe struct {
	generators map[models.ExportFormat]interfaces.Generator

	once   sync.Once
	result map[models.ExportFormat]interfaces.Capability
}

func newCapabilityProbe(generators map[models.ExportFormat]interfaces.Generator) *capabilityProbe {
	return &capabilityProbe{generators: generators}
}

// Capabilities returns per-format availability. Probes run on first call.
func (p *capabilityProbe) Capabilities() map[models.ExportFormat]interfaces.Capability {
	p.once.Do(p.probe)

	out := make(map[models.ExportFormat]interfaces.Capability, len(p.result))
	for format, capability := range p.result {
		out[format] = capability
	}
	return out
}

// Available reports whether one format is usable.
func (p *capabilityProbe) Available(format models.ExportFormat) interfaces.Capability {
	p.once.Do(p.probe)
	capability, ok := p.result[format]
	if !ok {
		return interfaces.Capability{Available: false, Reason: "no generator registered for this format"}
	}
	return capability
}

func (p *capabilityProbe) probe() {
	p.result = make(map[models.ExportFormat]interfaces.Capability, len(p.generators))

	for format, gen := range p.generators {
		pr, ok := gen.(prober)
		if !ok {
			p.result[format] = interfaces.Capability{Available: true}
			continue
		}
		if err := pr.Probe(); err != nil {
			p.result[format] = interfaces.Capability{Available: false, Reason: err.Error()}
			continue
		}
		p.result[format] = interfaces.Capability{Available: true}
	}
}
