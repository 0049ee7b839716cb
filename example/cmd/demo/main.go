package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/mickamy/attrtrail"
)

type Point struct {
	X, Y int
}

type Profile struct {
	Name  string
	Attrs map[string]any `trail:",extra"`
}

type Base struct {
	A int
}

type Derived struct {
	Base
	B int
}

type Order struct {
	ID     uuid.UUID
	Status string
	Amount float64
}

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("ATTRTRAIL_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}

	// Point with defaults: the first write records the default as old value.
	points := attrtrail.MustInstrument[Point](
		attrtrail.WithDefaults(Point{}),
		attrtrail.WithLogLevel(logLevel),
	)
	newPoint := attrtrail.Constructor(points, func(s attrtrail.Setter, xy [2]int) error {
		if err := s.Set("x", xy[0]); err != nil {
			return err
		}
		return s.Set("y", xy[1])
	})
	p, err := newPoint([2]int{1, 2})
	if err != nil {
		log.Fatalf("new point: %v", err)
	}
	must(p.Set("x", 50))
	if err := p.Set("z", 1); err != nil {
		fmt.Printf("point rejected z: %v\n", err)
	}
	printHistory("point", p)

	// Profile with an open set of extra attributes.
	profiles := attrtrail.MustInstrument[Profile]()
	pr, err := profiles.New(func(s attrtrail.Setter) error { return s.Set("name", "ada") })
	if err != nil {
		log.Fatalf("new profile: %v", err)
	}
	must(pr.Set("theme", "dark"))
	must(pr.Set("theme", "light"))
	printHistory("profile", pr)

	// Derived reuses Base construction logic; one record holds both fields.
	initBase := func(s attrtrail.Setter, a int) error { return s.Set("a", a) }
	derived := attrtrail.MustInstrument[Derived]()
	newDerived := attrtrail.Constructor(derived, func(s attrtrail.Setter, ab [2]int) error {
		if err := initBase(s, ab[0]); err != nil {
			return err
		}
		return s.Set("b", ab[1])
	})
	d, err := newDerived([2]int{1, 2})
	if err != nil {
		log.Fatalf("new derived: %v", err)
	}
	must(d.Set("a", 10))
	printHistory("derived", d)

	// Order writes stamped with operator metadata.
	orders := attrtrail.MustInstrument[Order](attrtrail.WithConfig(attrtrail.Config{
		Redact: attrtrail.RedactMap{
			"amount": func(_ string, v any) any { return fmt.Sprintf("%.0f", v) },
		},
	}))
	o, err := orders.New(func(s attrtrail.Setter) error {
		if err := s.Set("id", uuid.New()); err != nil {
			return err
		}
		return s.Set("status", "new")
	})
	if err != nil {
		log.Fatalf("new order: %v", err)
	}
	ctx := attrtrail.WithOperator(context.Background(), "demo-user")
	ctx = attrtrail.WithReason(ctx, "demo run")
	must(o.SetContext(ctx, "status", "paid"))
	must(o.SetContext(ctx, "amount", 1500.0))
	h, err := o.History()
	if err != nil {
		log.Fatalf("order history: %v", err)
	}
	for _, tr := range h.Field("status") {
		fmt.Printf("order status %v by %q (%s)\n", tr, tr.Meta.Operator, tr.Meta.Reason)
	}
	fmt.Printf("order amount %v\n", h.Field("amount"))

	h.Clear("status")
	fmt.Printf("order after clear: %v\n", h)
}

func printHistory(label string, obj interface {
	History() (*attrtrail.History, error)
}) {
	h, err := obj.History()
	if err != nil {
		log.Fatalf("%s history: %v", label, err)
	}
	fmt.Printf("%s: %v\n", label, h)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
