package models

import "time"

// System is a client/team/system grouping derived from trigger metadata.
// It is never stored; every query recomputes it from the api_trigger rows
// that carry all six descriptive fields.
type System struct {
	ClientName      string    `json:"client_name"`        // details ->> 'client_name'
	ClientID        string    `json:"client_id"`          // details ->> 'client_id'
	SystemName      string    `json:"system_name"`        // details ->> 'system_name'
	SystemID        string    `json:"system_id"`          // details ->> 'system_id'
	TeamName        string    `json:"team_name"`          // details ->> 'team_name'
	TeamID          string    `json:"team_id"`            // details ->> 'team_id'
	LatestRun       time.Time `json:"latest_run"`         // MAX(execution_date), UTC
	NumberOfDagRuns uint64    `json:"number_of_dag_runs"` // COUNT(*) of trigger rows
}

// SearchSystems is one page of a System search.
type SearchSystems struct {
	Systems  []System `json:"systems"`
	SearchBy string   `json:"search_by"`
	Page     uint32   `json:"page"`
	NextPage *uint32  `json:"next_page"` // nil when the look-ahead page is empty
}

// SystemDagRuns pairs a System with its DagRuns.
type SystemDagRuns struct {
	System  System   `json:"system"`
	DagRuns []DagRun `json:"dag_runs"`
}
