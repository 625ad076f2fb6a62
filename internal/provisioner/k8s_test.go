package provisioner

import (
	"context"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
)

func TestPluralize(t *testing.T) {
	cases := map[string]string{
		"PostgresInstance": "postgresinstances",
		"RedisInstance":    "redisinstances",
		"ObjectBucket":     "objectbuckets",
		"Class":            "classes",
	}
	for kind, want := range cases {
		if got := pluralize(kind); got != want {
			t.Errorf("pluralize(%q) = %q, want %q", kind, got, want)
		}
	}
}

func newFakeDynamic(t *testing.T, id Identity) *Dynamic {
	t.Helper()
	scheme := runtime.NewScheme()
	gvr := schema.GroupVersionResource{Group: "database.quantumlayer.dev", Version: "v1alpha1", Resource: "postgresinstances"}
	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, map[schema.GroupVersionResource]string{
		gvr: "PostgresInstanceList",
	})
	return NewDynamic(client)
}

func TestDynamicApplyAndGet(t *testing.T) {
	id := Identity{APIVersion: "database.quantumlayer.dev/v1alpha1", Kind: "PostgresInstance", Namespace: "default", Name: "db-1"}
	d := newFakeDynamic(t, id)

	doc := map[string]interface{}{
		"apiVersion": id.APIVersion,
		"kind":       id.Kind,
		"metadata":   map[string]interface{}{"name": id.Name, "namespace": id.Namespace},
		"spec":       map[string]interface{}{"storageGB": int64(100)},
	}

	obj := &unstructured.Unstructured{Object: doc}
	_, err := d.client.Resource(schema.GroupVersionResource{
		Group: "database.quantumlayer.dev", Version: "v1alpha1", Resource: "postgresinstances",
	}).Namespace(id.Namespace).Create(context.Background(), obj, metav1.CreateOptions{})
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}

	got, err := d.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["kind"] != id.Kind {
		t.Fatalf("unexpected document: %v", got)
	}
}

func TestDynamicGetMissingReturnsErrNotFound(t *testing.T) {
	id := Identity{APIVersion: "database.quantumlayer.dev/v1alpha1", Kind: "PostgresInstance", Namespace: "default", Name: "missing"}
	d := newFakeDynamic(t, id)

	_, err := d.Get(context.Background(), id)
	if err != ErrNotFound {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
}

func TestDynamicIsReadyFromConditions(t *testing.T) {
	id := Identity{APIVersion: "database.quantumlayer.dev/v1alpha1", Kind: "PostgresInstance", Namespace: "default", Name: "db-1"}
	d := newFakeDynamic(t, id)

	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": id.APIVersion,
		"kind":       id.Kind,
		"metadata":   map[string]interface{}{"name": id.Name, "namespace": id.Namespace},
		"status": map[string]interface{}{
			"conditions": []interface{}{
				map[string]interface{}{"type": "Ready", "status": "True"},
			},
		},
	}}
	_, err := d.client.Resource(schema.GroupVersionResource{
		Group: "database.quantumlayer.dev", Version: "v1alpha1", Resource: "postgresinstances",
	}).Namespace(id.Namespace).Create(context.Background(), obj, metav1.CreateOptions{})
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}

	ready, err := d.IsReady(context.Background(), id)
	if err != nil {
		t.Fatalf("IsReady: %v", err)
	}
	if !ready {
		t.Fatal("expected IsReady to report true from a Ready=True condition")
	}
}
