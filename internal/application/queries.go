package application

import (
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
)

type PreviewPlanQuery struct {
	Start time.Time
	// MinDelay bounds each step; nil means no lower bound.
	MinDelay MinDelayFunc
}

type PlanPreviewStep struct {
	Kind   domain.StepKind `json:"kind" yaml:"kind"`
	FireAt time.Time       `json:"fire_at" yaml:"fire_at"`
	Offset time.Duration   `json:"offset" yaml:"offset"`
}

type PlanPreviewItem struct {
	Ref            domain.ItemRef    `json:"ref" yaml:"ref"`
	Name           string            `json:"name,omitempty" yaml:"name,omitempty"`
	URL            string            `json:"url,omitempty" yaml:"url,omitempty"`
	StartTime      time.Time         `json:"start_time" yaml:"start_time"`
	StopTime       time.Time         `json:"stop_time" yaml:"stop_time"`
	Duration       time.Duration     `json:"duration" yaml:"duration"`
	InterItemDelay time.Duration     `json:"inter_item_delay" yaml:"inter_item_delay"`
	Steps          []PlanPreviewStep `json:"steps" yaml:"steps"`
}

type PlanPreview struct {
	StartTime     time.Time         `json:"start_time" yaml:"start_time"`
	EndTime       time.Time         `json:"end_time" yaml:"end_time"`
	TotalDuration time.Duration     `json:"total_duration" yaml:"total_duration"`
	Items         []PlanPreviewItem `json:"items" yaml:"items"`
}

func planPreview(plan domain.ScheduledPlan, items []domain.WorkItem) PlanPreview {
	byRef := make(map[domain.ItemRef]domain.WorkItem, len(items))
	for _, item := range items {
		byRef[item.Ref()] = item
	}

	preview := PlanPreview{
		StartTime:     plan.StartTime(),
		EndTime:       plan.EndTime(),
		TotalDuration: plan.TotalDuration(),
		Items:         make([]PlanPreviewItem, 0, plan.Len()),
	}
	for _, item := range plan.Items {
		work := byRef[item.Ref]
		row := PlanPreviewItem{
			Ref:            item.Ref,
			Name:           work.Name,
			URL:            work.URL,
			StartTime:      item.StartTime,
			StopTime:       item.StopTime,
			Duration:       item.TotalDuration(),
			InterItemDelay: item.InterItemDelay,
			Steps:          make([]PlanPreviewStep, 0, len(item.Steps)),
		}
		offsets := item.Offsets()
		for i, step := range item.Steps {
			row.Steps = append(row.Steps, PlanPreviewStep{Kind: step.Kind, FireAt: step.FireAt, Offset: offsets[i]})
		}
		preview.Items = append(preview.Items, row)
	}

	return preview
}
