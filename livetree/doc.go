package livetree

/*

# The live hash tree

A live stream has no final length, so the usual Merkle tree over a known
content size cannot be built up front. The live hash tree grows
chunk-by-chunk at the source instead, and is reconstructed incrementally
at every client from whatever hashes, chunks and signatures arrive off
the wire.

The important properties fall out of the bin numbering (see the bins
package) and the peak structure it induces:

 1. After n appended chunks the tree has exactly one peak per set bit of
    n, each the root of a perfect subtree whose width is that power of
    two. The peak set is a pure function of n.
 2. The tree only grows to the right. When the chunk count crosses the
    current root's span, a new root is spliced one layer up with the old
    root as its left child. Nothing is ever inserted or reordered.
 3. Because peaks only ever merge leftward, the source can sign a peak
    ("munro") once its epoch completes and that hash never changes
    afterwards. Clients authenticate any chunk by walking sibling
    hashes up to a signed munro; a chunk is believed exactly when that
    walk reproduces a signed hash.
 4. History left of the discard window can be forgotten. Pruning a
    subtree keeps its root hash in place, so the pruned root continues
    to serve as an uncle for proofs toward newer, larger peaks.

A source restarting from a checkpoint installs the persisted munro as
the sole signed peak and continues appending after its base range; the
checkpoint subtree ends up to the left under the regrown root and its
chunks are simply never advertised again.

The tree is a pointer structure rather than a flat array because both
ends mutate it sparsely: the source materializes only the rightmost
path plus completed epochs, and a client materializes only the paths
proofs have touched. Parents own children; back references are valid
for the lifetime of the parent.

The signature scheme is pluggable via Signer and Verifier. CoseSigner
and CoseVerifier provide an ES256 implementation; no scheme is chosen
by default. The tree itself only relies on signatures having a fixed
per-key-type length.

*/
