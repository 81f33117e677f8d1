// Package meshadapt adapts unstructured meshes partitioned across ranks.
//
// Every rank holds one partition and drives its own Adaptor. Operations are
// collective: all ranks call them in the same order. Mutations are staged in
// buffers between Prepare and Finish, so local indices stay valid until the
// generation is flushed.
//
// # Quick Start
//
//	err := local.Run(ctx, 4, func(ctx context.Context, t transport.Transport) error {
//	    a, err := meshadapt.New(partition(t.Rank()), t,
//	        meshadapt.WithLogger(meshadapt.NewTextLogger(slog.LevelInfo)))
//	    if err != nil {
//	        return err
//	    }
//	    if err := a.Prepare(); err != nil {
//	        return err
//	    }
//	    x := meshadapt.NewExports(t.Size(), a.Mesh().NumEntities())
//	    x.Add((t.Rank()+1)%t.Size(), 0, 0)
//	    if err := a.MoveElements(ctx, x); err != nil {
//	        return err
//	    }
//	    return a.Finish()
//	})
//
// # Operations
//
//   - MoveElements relocates elements and the nodes they need.
//   - GrowOverlap adds a ghost layer along partition boundaries.
//   - CombineMesh merges another mesh, shifting its global ids.
//   - RemoveDuplicateElementsAndNodes drops co-located duplicates.
//   - AssignPartitionAgnosticGlobalIndices derives ids from node locations.
//
// # Errors
//
// Structural violations return an *InvariantError matching ErrInvariant.
// Unsupported configurations return ErrNotImplemented; a cross-rank global
// id conflict returns ErrRenumberingRequired unless WithAutoRenumber is set.
// After an invariant violation the distributed mesh is unusable.
package meshadapt
