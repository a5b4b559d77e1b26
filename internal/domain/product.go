package domain

// Product names of the default registry.
const (
	TempHourlyAvg  = "temp_hourly_avg"
	TempDailyAvg   = "temp_daily_avg"
	TempDailyMax   = "temp_daily_max"
	RadiationDaily = "radiation_daily"
)

// KeyValue is one required (key, value) pair of a signature.
type KeyValue struct {
	Key   string
	Value int64
}

// Signature is a named, ordered set of required metadata values. It is
// immutable once built.
type Signature struct {
	name string
	keys []KeyValue
}

// NewSignature builds a signature; pairs are checked in the given order.
func NewSignature(name string, pairs ...KeyValue) Signature {
	keys := make([]KeyValue, len(pairs))
	copy(keys, pairs)
	return Signature{name: name, keys: keys}
}

// Name returns the product name.
func (s Signature) Name() string { return s.name }

// Keys returns a copy of the required pairs.
func (s Signature) Keys() []KeyValue {
	keys := make([]KeyValue, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Matches reports whether every required key is defined on m and holds the
// expected value. It stops at the first mismatch.
func (s Signature) Matches(m Metadata) bool {
	for _, kv := range s.keys {
		if !m.IsDefined(kv.Key) {
			return false
		}
		v, err := m.Long(kv.Key)
		if err != nil || v != kv.Value {
			return false
		}
	}
	return true
}

// Registry is an ordered list of signatures; earlier entries win.
type Registry []Signature

// Classify returns the name of the first signature matched by m.
func (r Registry) Classify(m Metadata) (string, bool) {
	for _, s := range r {
		if s.Matches(m) {
			return s.name, true
		}
	}
	return "", false
}

// Lookup returns the signature registered under name.
func (r Registry) Lookup(name string) (Signature, bool) {
	for _, s := range r {
		if s.name == name {
			return s, true
		}
	}
	return Signature{}, false
}

// temperature2m returns the keys shared by every 2 m temperature product,
// with the statistical processing fields spliced in at their eccodes position.
func temperature2m(statProcessing, lengthOfTimeRange int64) []KeyValue {
	return []KeyValue{
		{"discipline", 0},
		{"parameterCategory", 0},
		{"parameterNumber", 0},
		{"typeOfFirstFixedSurface", 103},
		{"scaleFactorOfFirstFixedSurface", 3},
		{"scaledValueOfFirstFixedSurface", 1800},
		{"typeOfSecondFixedSurface", 255},
		{"forecastTime", 0},
		{"indicatorOfUnitOfTimeRange", 1},
		{"productDefinitionTemplateNumber", 8},
		{"typeOfStatisticalProcessing", statProcessing},
		{"indicatorOfUnitForTimeRange", 1},
		{"lengthOfTimeRange", lengthOfTimeRange},
		{"typeOfProcessedData", 0},
	}
}

// DefaultRegistry returns the products dumped by the extractor.
func DefaultRegistry() Registry {
	return Registry{
		NewSignature(TempHourlyAvg, temperature2m(0, 1)...),
		NewSignature(TempDailyAvg, temperature2m(0, 24)...),
		NewSignature(TempDailyMax, temperature2m(2, 24)...),
	}
}

// RadiationSignature selects the observed daily accumulation of downward
// short-wave radiation flux.
func RadiationSignature() Signature {
	return NewSignature(RadiationDaily,
		KeyValue{"parameterCategory", 4},
		KeyValue{"parameterNumber", 7},
		KeyValue{"typeOfStatisticalProcessing", 1},
		KeyValue{"typeOfGeneratingProcess", 8},
		KeyValue{"indicatorOfUnitOfTimeRange", 1},
		KeyValue{"lengthOfTimeRange", 24},
	)
}
