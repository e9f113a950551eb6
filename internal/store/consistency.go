package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// Check scans every link type and link for a missing or divergent mirror,
// links whose type does not fit their endpoints, and class pairs registered
// in both directions. With opts.Repair the unpaired halves are deleted in the
// same transaction; every other violation is only reported.
func (b *Backend) Check(ctx context.Context, opts types.CheckOptions) (report *types.ConsistencyReport, err error) {
	ctx, done := b.observe(ctx, "check")
	defer func() { done(err) }()

	run := b.read
	if opts.Repair {
		run = b.write
	}
	err = run(ctx, func(q *querier) error {
		report, err = b.checkTx(ctx, q, opts.Repair)
		return err
	})
	if err != nil {
		return nil, err
	}
	b.logger.Info("consistency check finished",
		zap.Int("link_types", report.LinkTypesScanned),
		zap.Int("links", report.LinksScanned),
		zap.Int("violations", len(report.Violations)),
		zap.Int("repaired", report.Repaired))
	return report, nil
}

type pairKey struct {
	source, target string
	reverse        bool
}

type linkTypeScan struct {
	id, source, target     string
	sourceName, targetName string
	reverse                bool
	maxLinks               int
	scope                  string
}

type linkScan struct {
	id, source, target, linkTypeID string
	sourceClass, targetClass       string
}

// checkTx runs the consistency scan inside an open transaction.
func (b *Backend) checkTx(ctx context.Context, q *querier, repair bool) (*types.ConsistencyReport, error) {
	report := &types.ConsistencyReport{Violations: []types.Violation{}}

	linkTypes, err := scanLinkTypes(ctx, q)
	if err != nil {
		return nil, err
	}
	links, err := scanLinks(ctx, q)
	if err != nil {
		return nil, err
	}
	report.LinkTypesScanned = len(linkTypes)
	report.LinksScanned = len(links)

	byKey := make(map[pairKey]linkTypeScan, len(linkTypes))
	byID := make(map[string]linkTypeScan, len(linkTypes))
	for _, lt := range linkTypes {
		byKey[pairKey{lt.source, lt.target, lt.reverse}] = lt
		byID[lt.id] = lt
	}
	var orphanTypes []string
	for _, lt := range linkTypes {
		m, ok := byKey[pairKey{lt.target, lt.source, !lt.reverse}]
		switch {
		case !ok:
			report.Violations = append(report.Violations, types.Violation{
				Kind:        types.ViolationLinkTypeUnpaired,
				LinkTypeID:  lt.id,
				SourceClass: lt.sourceName,
				TargetClass: lt.targetName,
				Detail:      "mirror link type row is missing",
			})
			orphanTypes = append(orphanTypes, lt.id)
		case !lt.reverse && (m.maxLinks != lt.maxLinks || m.scope != lt.scope):
			report.Violations = append(report.Violations, types.Violation{
				Kind:        types.ViolationLinkTypeDivergent,
				LinkTypeID:  lt.id,
				SourceClass: lt.sourceName,
				TargetClass: lt.targetName,
				Detail: fmt.Sprintf("max_links %d/%d scope %q/%q",
					lt.maxLinks, m.maxLinks, lt.scope, m.scope),
			})
		}
		// Registered as A→B and again as B→A. Reported once, from the
		// side with the smaller source class id.
		if other, dup := byKey[pairKey{lt.target, lt.source, false}]; dup && !lt.reverse &&
			lt.source < lt.target {
			report.Violations = append(report.Violations, types.Violation{
				Kind:        types.ViolationLinkTypeDuplicated,
				LinkTypeID:  lt.id,
				SourceClass: lt.sourceName,
				TargetClass: lt.targetName,
				Detail:      fmt.Sprintf("also registered in the other direction as %s", other.id),
			})
		}
	}

	linkByKey := make(map[[2]string]linkScan, len(links))
	for _, l := range links {
		linkByKey[[2]string{l.source, l.target}] = l
	}
	var orphanLinks []string
	for _, l := range links {
		lt, known := byID[l.linkTypeID]
		if !known || lt.source != l.sourceClass || lt.target != l.targetClass {
			report.Violations = append(report.Violations, types.Violation{
				Kind:       types.ViolationLinkTypeMismatch,
				LinkID:     l.id,
				LinkTypeID: l.linkTypeID,
				SourceID:   l.source,
				TargetID:   l.target,
				Detail:     "link type does not join the endpoint classes",
			})
		}

		m, paired := linkByKey[[2]string{l.target, l.source}]
		if !paired {
			report.Violations = append(report.Violations, types.Violation{
				Kind:       types.ViolationLinkUnpaired,
				LinkID:     l.id,
				LinkTypeID: l.linkTypeID,
				SourceID:   l.source,
				TargetID:   l.target,
				Detail:     "mirror link is missing",
			})
			orphanLinks = append(orphanLinks, l.id)
			continue
		}
		if !known {
			continue
		}
		want, ok := byKey[pairKey{lt.target, lt.source, !lt.reverse}]
		if ok && m.linkTypeID != want.id {
			report.Violations = append(report.Violations, types.Violation{
				Kind:       types.ViolationLinkTypeMismatch,
				LinkID:     l.id,
				LinkTypeID: l.linkTypeID,
				SourceID:   l.source,
				TargetID:   l.target,
				Detail:     fmt.Sprintf("mirror link %s uses type %s, want %s", m.id, m.linkTypeID, want.id),
			})
		}
	}

	for _, v := range report.Violations {
		b.reportViolation(v)
	}
	if !repair {
		return report, nil
	}

	for _, id := range orphanLinks {
		res, err := q.exec(ctx, "DELETE FROM links WHERE link_id = ?", id)
		if err != nil {
			return nil, fmt.Errorf("repairing link %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		report.Repaired += int(n)
	}
	for _, id := range orphanTypes {
		// Links of an unpaired type go with it, along with their mirrors.
		if _, err := q.exec(ctx, `DELETE FROM links WHERE link_id IN (
			SELECT m.link_id FROM links l JOIN links m ON m.source_id = l.target_id AND m.target_id = l.source_id
			WHERE l.link_type_id = ?)`, id); err != nil {
			return nil, fmt.Errorf("repairing links mirroring type %s: %w", id, err)
		}
		if _, err := q.exec(ctx, "DELETE FROM links WHERE link_type_id = ?", id); err != nil {
			return nil, fmt.Errorf("repairing links of type %s: %w", id, err)
		}
		res, err := q.exec(ctx, "DELETE FROM link_types WHERE link_type_id = ?", id)
		if err != nil {
			return nil, fmt.Errorf("repairing link type %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		report.Repaired += int(n)
	}
	if report.Repaired > 0 {
		b.logger.Warn("unpaired rows deleted", zap.Int("repaired", report.Repaired))
	}
	return report, nil
}

func scanLinkTypes(ctx context.Context, q *querier) ([]linkTypeScan, error) {
	rows, err := q.query(ctx, `SELECT lt.link_type_id, lt.source_class_id, lt.target_class_id, sc.name, tc.name,
			lt.reverse, lt.max_links, lt.scope
		FROM link_types lt
		JOIN classes sc ON sc.class_id = lt.source_class_id
		JOIN classes tc ON tc.class_id = lt.target_class_id
		ORDER BY lt.link_type_id`)
	if err != nil {
		return nil, fmt.Errorf("scanning link types: %w", err)
	}
	defer rows.Close()

	var out []linkTypeScan
	for rows.Next() {
		var lt linkTypeScan
		var reverse int
		if err := rows.Scan(&lt.id, &lt.source, &lt.target, &lt.sourceName, &lt.targetName,
			&reverse, &lt.maxLinks, &lt.scope); err != nil {
			return nil, fmt.Errorf("scanning link type: %w", err)
		}
		lt.reverse = reverse != 0
		out = append(out, lt)
	}
	return out, rows.Err()
}

func scanLinks(ctx context.Context, q *querier) ([]linkScan, error) {
	rows, err := q.query(ctx, `SELECT l.link_id, l.source_id, l.target_id, l.link_type_id, s.class_id, t.class_id
		FROM links l
		JOIN objects s ON s.object_id = l.source_id
		JOIN objects t ON t.object_id = l.target_id
		ORDER BY l.link_id`)
	if err != nil {
		return nil, fmt.Errorf("scanning links: %w", err)
	}
	defer rows.Close()

	var out []linkScan
	for rows.Next() {
		var l linkScan
		if err := rows.Scan(&l.id, &l.source, &l.target, &l.linkTypeID, &l.sourceClass, &l.targetClass); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
