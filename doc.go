// Package procureflow provides a configurable multi-stage approval workflow
// engine for procurement records (requisitions, derived orders and purchase
// orders).
//
// Each tenant configures, per record type, an ordered list of stages with
// the roles allowed to act at each one and a layered rejection policy. The
// engine moves records through those stages and exposes:
//
//   - registry   – versioned workflow definitions, YAML loading, diffs
//   - transition – submit, approve, reject, resubmit and fulfillment updates
//   - bulk       – best-effort transitions over many records or a group
//   - fanout     – one linked downstream artifact per fulfillment partner
//   - logistics  – shipment dispatch after approval commits
//
// End-users typically interact with the engine via the Service façade:
//
//	srv, _ := procureflow.New(ctx)
//	_, _ = srv.LoadDefinition(ctx, "requisition.yaml")
//	rec, _ := srv.Submit(ctx, &transition.SubmitRequest{TenantID: "t1", RecordType: model.RecordTypeRequisition, RequesterID: "u1"})
//	result, _ := srv.Approve(ctx, rec.ID, model.Actor{ID: "u2", Role: model.RoleSiteAdmin})
package procureflow
