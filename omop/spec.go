package omop

// SNOMEDPrefix is the URI namespace stripped from source codes before lookup
// in the SNOMED-to-Athena vocabulary.
const SNOMEDPrefix = "http://snomed.info/id/"

// GenderConceptIDs maps the NCIT sex URIs used by the CARE semantic model to
// OMOP gender concept ids. Undifferentiated and unknown both map to 9999.
var GenderConceptIDs = map[string]string{
	"http://purl.obolibrary.org/obo/NCIT_C20197":  "8507",
	"http://purl.obolibrary.org/obo/NCIT_C16576":  "8532",
	"http://purl.obolibrary.org/obo/NCIT_C124294": "9999",
	"http://purl.obolibrary.org/obo/NCIT_C17998":  "9999",
}

// ConceptMapping maps one source column onto a concept id column. With Prefix
// set, values carrying that namespace are stripped to the bare code before
// lookup and values in any other URI scheme are left alone. With Static set
// the fixed map is used instead of the vocabulary loaded for the run.
type ConceptMapping struct {
	SourceColumn string
	TargetColumn string
	Prefix       string
	Static       map[string]string
}

// TableSpec describes how one CDM table is extracted and transformed.
type TableSpec struct {
	// Name is the CDM table name, also the output file stem.
	Name string
	// QueryPrefix selects the extraction query templates for the table.
	QueryPrefix string
	// Columns is the CDM column set in persistence order.
	Columns []string
	// Required columns must exist in the extracted table; a missing one
	// means the extraction itself is broken.
	Required []string
	// Defaults are injected wherever the named column holds a null.
	Defaults map[string]any
	// DateColumns are coerced to calendar dates with no datetime twin.
	DateColumns []string
	// DatePairs maps a date column to the datetime column receiving a
	// midnight copy of its value.
	DatePairs map[string]string
	// Mappings are applied after defaulting, so a hit overrides the
	// injected fallback concept.
	Mappings []ConceptMapping
	// DeriveBirthFields splits birth_datetime into year/month/day fields.
	DeriveBirthFields bool
	// FeedsVisits marks tables whose untrimmed output contributes rows to
	// VISIT_OCCURRENCE.
	FeedsVisits bool
}

var visitDefaults = map[string]any{
	"visit_concept_id":      VisitConceptNoMatch,
	"visit_type_concept_id": TypeConceptNoMatch,
}

func withVisitDefaults(defaults map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(visitDefaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range visitDefaults {
		out[k] = v
	}
	return out
}

var visitDatePairs = map[string]string{
	"visit_start_date": "visit_start_datetime",
	"visit_end_date":   "visit_end_datetime",
}

func withVisitDatePairs(pairs map[string]string) map[string]string {
	out := make(map[string]string, len(pairs)+len(visitDatePairs))
	for k, v := range pairs {
		out[k] = v
	}
	for k, v := range visitDatePairs {
		out[k] = v
	}
	return out
}

// Tables lists the domain tables in pipeline order. VISIT_OCCURRENCE is not
// part of the list; it is derived from the FeedsVisits outputs by the visit
// aggregator using VisitOccurrenceSpec.
var Tables = []TableSpec{
	{
		Name:        "PERSON",
		QueryPrefix: "PERSON",
		Columns:     PersonColumns,
		Required:    []string{"person_id"},
		Defaults: map[string]any{
			"race_concept_id":        int64(0),
			"ethnicity_concept_id":   int64(0),
			"race_source_value":      "NA",
			"ethnicity_source_value": "NA",
		},
		DateColumns: []string{"birth_datetime"},
		Mappings: []ConceptMapping{
			{
				SourceColumn: "gender_source_value",
				TargetColumn: "gender_concept_id",
				Static:       GenderConceptIDs,
			},
		},
		DeriveBirthFields: true,
	},
	{
		Name:        "DEATH",
		QueryPrefix: "DEATH",
		Columns:     DeathColumns,
		Required:    []string{"death_date"},
		Defaults: map[string]any{
			"death_type_concept_id": TypeConceptNoMatch,
		},
		DatePairs: map[string]string{
			"death_date": "death_datetime",
		},
	},
	{
		Name:        "OBSERVATION_PERIOD",
		QueryPrefix: "OBSERVATION-PERIOD",
		Columns:     ObservationPeriodColumns,
		Required:    []string{"observation_period_start_date"},
		Defaults: map[string]any{
			"period_type_concept_id": TypeConceptNoMatch,
		},
		DateColumns: []string{"observation_period_start_date", "observation_period_end_date"},
	},
	{
		Name:        "CONDITION_OCCURRENCE",
		QueryPrefix: "CONDITION",
		Columns:     ConditionOccurrenceColumns,
		Required:    []string{"condition_start_date"},
		Defaults: withVisitDefaults(map[string]any{
			"condition_concept_id":        int64(0),
			"condition_type_concept_id":   TypeConceptNoMatch,
			"condition_status_concept_id": ConditionStatusConfirmed,
		}),
		DatePairs: withVisitDatePairs(map[string]string{
			"condition_start_date": "condition_start_datetime",
			"condition_end_date":   "condition_end_datetime",
		}),
		Mappings: []ConceptMapping{
			{
				SourceColumn: "condition_source_value",
				TargetColumn: "condition_concept_id",
				Prefix:       SNOMEDPrefix,
			},
		},
		FeedsVisits: true,
	},
	{
		Name:        "MEASUREMENT",
		QueryPrefix: "MEASUREMENT",
		Columns:     MeasurementColumns,
		Required:    []string{"measurement_date"},
		Defaults: withVisitDefaults(map[string]any{
			"measurement_concept_id":      int64(0),
			"measurement_type_concept_id": TypeConceptNoMatch,
		}),
		DatePairs: withVisitDatePairs(map[string]string{
			"measurement_date": "measurement_datetime",
		}),
		Mappings: []ConceptMapping{
			{
				SourceColumn: "measurement_source_value",
				TargetColumn: "measurement_concept_id",
				Prefix:       SNOMEDPrefix,
			},
		},
		FeedsVisits: true,
	},
	{
		Name:        "OBSERVATION",
		QueryPrefix: "OBSERVATION_",
		Columns:     ObservationColumns,
		Required:    []string{"observation_date"},
		Defaults: withVisitDefaults(map[string]any{
			"observation_concept_id":      int64(0),
			"observation_type_concept_id": TypeConceptNoMatch,
		}),
		DatePairs: withVisitDatePairs(map[string]string{
			"observation_date": "observation_datetime",
		}),
		Mappings: []ConceptMapping{
			{
				SourceColumn: "observation_source_value",
				TargetColumn: "observation_concept_id",
				Prefix:       SNOMEDPrefix,
			},
		},
		FeedsVisits: true,
	},
	{
		Name:        "PROCEDURE_OCCURRENCE",
		QueryPrefix: "PROCEDURE",
		Columns:     ProcedureOccurrenceColumns,
		Required:    []string{"procedure_date"},
		Defaults: withVisitDefaults(map[string]any{
			"procedure_concept_id":      int64(0),
			"procedure_type_concept_id": TypeConceptNoMatch,
		}),
		DatePairs: withVisitDatePairs(map[string]string{
			"procedure_date":     "procedure_datetime",
			"procedure_end_date": "procedure_end_datetime",
		}),
		FeedsVisits: true,
	},
	{
		Name:        "DRUG_EXPOSURE",
		QueryPrefix: "DRUG",
		Columns:     DrugExposureColumns,
		Required:    []string{"drug_exposure_start_date"},
		Defaults: withVisitDefaults(map[string]any{
			"drug_type_concept_id": TypeConceptNoMatch,
		}),
		DatePairs: withVisitDatePairs(map[string]string{
			"drug_exposure_start_date": "drug_exposure_start_datetime",
			"drug_exposure_end_date":   "drug_exposure_end_datetime",
		}),
		FeedsVisits: true,
	},
}

// VisitOccurrenceSpec drives the final defaulting pass over the aggregated
// visit candidate set. It has no Required columns: the aggregator projects
// every candidate onto the full visit column set first.
var VisitOccurrenceSpec = TableSpec{
	Name:      "VISIT_OCCURRENCE",
	Columns:   VisitOccurrenceColumns,
	Defaults:  withVisitDefaults(nil),
	DatePairs: withVisitDatePairs(nil),
}
