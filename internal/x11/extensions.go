package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgbutil"
)

// Minimum extension versions. Composite 0.3 introduces
// GetOverlayWindow; Render 0.11 is the first with a stable Composite
// op across servers we care about.
const (
	compositeMajor, compositeMinor = 0, 3
	shapeMajor, shapeMinor         = 1, 1
	renderMajor, renderMinor       = 0, 11
	damageMajor, damageMinor       = 1, 1
	xfixesMajor, xfixesMinor       = 2, 0
)

// checkVersion enforces the negotiation rule: a different major
// version than required, or the right major with a lower minor, is
// incompatible. QueryVersion must run on every connection that will
// issue an extension's requests; the server answers BadRequest to
// everything else otherwise.
func checkVersion(name string, gotMajor, gotMinor, wantMajor, wantMinor uint32) error {
	if gotMajor != wantMajor || gotMinor < wantMinor {
		return fmt.Errorf("x11: %s version %d.%d incompatible, need %d.%d",
			name, gotMajor, gotMinor, wantMajor, wantMinor)
	}
	return nil
}

// negotiateEvent initializes the extensions used on the event
// connection. Only Damage lives here: the protocol couples creating a
// damage object with subscribing to its notify events, so the
// connection that reads events must be the one issuing Damage
// requests.
func negotiateEvent(x *xgbutil.XUtil) error {
	c := x.Conn()
	if err := damage.Init(c); err != nil {
		return fmt.Errorf("x11: Damage extension missing: %w", err)
	}
	rep, err := damage.QueryVersion(c, damageMajor, damageMinor).Reply()
	if err != nil {
		return fmt.Errorf("x11: Damage version query: %w", err)
	}
	return checkVersion("Damage", rep.MajorVersion, rep.MinorVersion, damageMajor, damageMinor)
}

// negotiateRequest initializes the extensions used on the request
// connection: Composite, Shape, Render, and XFixes.
func negotiateRequest(x *xgbutil.XUtil) error {
	c := x.Conn()

	if err := composite.Init(c); err != nil {
		return fmt.Errorf("x11: Composite extension missing: %w", err)
	}
	crep, err := composite.QueryVersion(c, compositeMajor, compositeMinor).Reply()
	if err != nil {
		return fmt.Errorf("x11: Composite version query: %w", err)
	}
	if err := checkVersion("Composite", crep.MajorVersion, crep.MinorVersion, compositeMajor, compositeMinor); err != nil {
		return err
	}

	if err := shape.Init(c); err != nil {
		return fmt.Errorf("x11: Shape extension missing: %w", err)
	}
	srep, err := shape.QueryVersion(c).Reply()
	if err != nil {
		return fmt.Errorf("x11: Shape version query: %w", err)
	}
	if err := checkVersion("Shape", uint32(srep.MajorVersion), uint32(srep.MinorVersion), shapeMajor, shapeMinor); err != nil {
		return err
	}

	if err := render.Init(c); err != nil {
		return fmt.Errorf("x11: Render extension missing: %w", err)
	}
	rrep, err := render.QueryVersion(c, renderMajor, renderMinor).Reply()
	if err != nil {
		return fmt.Errorf("x11: Render version query: %w", err)
	}
	if err := checkVersion("Render", rrep.MajorVersion, rrep.MinorVersion, renderMajor, renderMinor); err != nil {
		return err
	}

	if err := xfixes.Init(c); err != nil {
		return fmt.Errorf("x11: XFixes extension missing: %w", err)
	}
	xrep, err := xfixes.QueryVersion(c, xfixesMajor, xfixesMinor).Reply()
	if err != nil {
		return fmt.Errorf("x11: XFixes version query: %w", err)
	}
	return checkVersion("XFixes", xrep.MajorVersion, xrep.MinorVersion, xfixesMajor, xfixesMinor)
}
