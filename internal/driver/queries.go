package driver

// Templates with a %s take a label or relationship type that must come from an
// allow-list; every data value is a parameter.
const (
	CreateIDConstraintQuery = `CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE`

	UpsertEntityQuery = `
		MERGE (n:%s {id: $id})
		SET n.name = $name,
			n.location = $location,
			n.description = $description,
			n.supply_capacity = $supply_capacity
	`

	UpsertEntityNameQuery = `
		MERGE (n:%s {id: $id})
		SET n.name = $name
	`

	UpsertRelationWithProductQuery = `
		MATCH (start {id: $start_id})
		MATCH (end {id: $end_id})
		MERGE (start)-[r:%s {product: $product}]->(end)
	`

	UpsertRelationQuery = `
		MATCH (start {id: $start_id})
		MATCH (end {id: $end_id})
		MERGE (start)-[r:%s]->(end)
	`

	DeleteAllQuery = `MATCH (n) DETACH DELETE n`

	CountSupplierEmbeddingsQuery = `
		MATCH (s:Supplier)
		WHERE s.embedding IS NOT NULL
		RETURN count(s) AS count
	`

	SuppliersMissingEmbeddingQuery = `
		MATCH (s:Supplier)
		WHERE s.embedding IS NULL AND s.description IS NOT NULL AND s.description <> ''
		RETURN s.id AS id, s.description AS description
	`

	SetSupplierEmbeddingQuery = `
		MATCH (s:Supplier {id: $id})
		CALL db.create.setNodeVectorProperty(s, 'embedding', $embedding)
	`

	// Index name is validated by the caller; dimensions is bound.
	CreateSupplierVectorIndexQuery = `
		CREATE VECTOR INDEX %s IF NOT EXISTS
		FOR (s:Supplier) ON (s.embedding)
		OPTIONS {indexConfig: {
			` + "`vector.dimensions`" + `: $dimensions,
			` + "`vector.similarity_function`" + `: 'cosine'
		}}
	`

	SupplierVectorSearchQuery = `
		CALL db.index.vector.queryNodes($index, $k, $embedding)
		YIELD node, score
		RETURN node.name AS name, node.location AS location,
			node.description AS description, node.supply_capacity AS supply_capacity,
			score
	`
)
