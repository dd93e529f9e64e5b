package dto

// StrategyRequest mirrors the assignment strategy object.
type StrategyRequest struct {
	Type                string `json:"type"`
	ConsiderPriority    bool   `json:"considerPriority"`
	ConsiderWorkload    bool   `json:"considerWorkload"`
	ConsiderPerformance bool   `json:"considerPerformance"`
}

// AutoAssignRequest assigns one email (EmailID) or many (EmailIDs).
type AutoAssignRequest struct {
	EmailID  string           `json:"emailId"`
	EmailIDs []string         `json:"emailIds"`
	Strategy *StrategyRequest `json:"strategy"`
}
