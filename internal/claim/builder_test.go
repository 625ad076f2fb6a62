package claim

import (
	"encoding/json"
	"testing"

	"github.com/quantumlayer-dev/controlplane/internal/policy"
	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
)

func testDecision() *scheduler.Decision {
	return &scheduler.Decision{
		Provider:       "aws",
		Region:         "us-east-1",
		RuntimeCluster: "us-east-1-c1",
		Network:        policy.NetworkAttachment{"vpcId": "vpc-123"},
		Reason: scheduler.Reason{
			Tier: "medium",
			Selected: scheduler.Scorecard{Candidate: "aws:us-east-1:us-east-1-c1", Provider: "aws", TotalScore: 0.8},
		},
	}
}

func testProduct() ProductDefinition {
	return ProductDefinition{
		Name:                 "postgres",
		APIVersion:           "database.quantumlayer.dev/v1alpha1",
		Kind:                 "PostgresInstance",
		CompositionClassName: "postgres-standard",
	}
}

func TestBuildSetsApiVersionAndKind(t *testing.T) {
	doc, err := Build(testProduct(), Request{Name: "db-1", Namespace: "default", Cell: "cell-1", Environment: "prod"}, testDecision())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if doc["apiVersion"] != "database.quantumlayer.dev/v1alpha1" {
		t.Errorf("apiVersion = %v", doc["apiVersion"])
	}
	if doc["kind"] != "PostgresInstance" {
		t.Errorf("kind = %v", doc["kind"])
	}
}

func TestBuildMergesDecisionIntoParameters(t *testing.T) {
	req := Request{Name: "db-1", Namespace: "default", Cell: "cell-1", Environment: "prod", Parameters: map[string]interface{}{"storageGB": 100}}
	doc, err := Build(testProduct(), req, testDecision())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	spec := doc["spec"].(map[string]interface{})
	params := spec["parameters"].(map[string]interface{})
	if params["provider"] != "aws" || params["region"] != "us-east-1" {
		t.Fatalf("expected decision fields merged into parameters, got %v", params)
	}
	if params["storageGB"] != 100 {
		t.Fatalf("expected caller parameters preserved, got %v", params)
	}
}

func TestBuildEncodesPlacementReasonAnnotation(t *testing.T) {
	doc, err := Build(testProduct(), Request{Name: "db-1", Namespace: "default", Cell: "cell-1", Environment: "prod"}, testDecision())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	metadata := doc["metadata"].(map[string]interface{})
	annotations := metadata["annotations"].(map[string]interface{})
	raw, ok := annotations[labelPrefix+"placement-reason"].(string)
	if !ok {
		t.Fatal("expected placement-reason annotation to be a JSON string")
	}
	var reason scheduler.Reason
	if err := json.Unmarshal([]byte(raw), &reason); err != nil {
		t.Fatalf("placement-reason annotation did not round-trip as JSON: %v", err)
	}
	if reason.Tier != "medium" {
		t.Fatalf("expected round-tripped reason tier medium, got %q", reason.Tier)
	}
}

func TestBuildDefaultsConnectionSecretSuffix(t *testing.T) {
	product := testProduct()
	product.ConnectionSecretSuffix = ""
	doc, err := Build(product, Request{Name: "db-1", Namespace: "default"}, testDecision())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	spec := doc["spec"].(map[string]interface{})
	secretRef := spec["writeConnectionSecretToRef"].(map[string]interface{})
	if secretRef["name"] != "db-1-conn" {
		t.Fatalf("expected default -conn suffix, got %v", secretRef["name"])
	}
}
