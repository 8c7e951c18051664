package store

const (
	queryAllSignDefinitions = `
		SELECT
			sign_code,
			COALESCE(explanation_fr, ''),
			COALESCE(explanation_en, ''),
			COALESCE(category, ''),
			COALESCE(rpa_code, ''),
			COALESCE(rpa_description, ''),
			COALESCE(rtp_description, ''),
			COALESCE(original_digital_asset_url, '')
		FROM sign_definitions
	`

	queryGetPhoto = `
		SELECT
			photo_id,
			sign_code,
			COALESCE(image_url, ''),
			COALESCE(source, ''),
			latitude,
			longitude,
			COALESCE(real_world_conditions, '[]'),
			is_synthetic,
			captured_date
		FROM real_sign_photos
		WHERE photo_id = $1
	`

	// bounding-box prefilter; exact radius check happens in Go
	queryInstancesNear = `
		SELECT
			i.instance_id,
			i.sign_code,
			i.pole_id,
			COALESCE(i.panel_id, ''),
			COALESCE(i.source, ''),
			i.last_updated,
			p.latitude,
			p.longitude,
			COALESCE(p.municipality, '')
		FROM sign_instances i
		JOIN poles p ON i.pole_id = p.pole_id
		WHERE i.sign_code = $1
		  AND p.latitude BETWEEN $2 AND $3
		  AND p.longitude BETWEEN $4 AND $5
	`

	queryZonesNear = `
		SELECT
			permit_id,
			COALESCE(permit_number, ''),
			COALESCE(current_status, ''),
			COALESCE(reason_category, ''),
			COALESCE(organization_name, ''),
			start_date,
			end_date,
			active_mon, active_tue, active_wed, active_thu, active_fri, active_sat, active_sun,
			allday_mon, allday_tue, allday_wed, allday_thu, allday_fri, allday_sat, allday_sun,
			latitude,
			longitude
		FROM construction_zones
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
	`

	queryImpactsForPermits = `
		SELECT
			impact_id,
			permit_id,
			COALESCE(street_name, ''),
			COALESCE(from_name, ''),
			COALESCE(to_name, ''),
			COALESCE(street_impact_type, ''),
			COALESCE(nb_free_parking_places, 0),
			COALESCE(sidewalk_blocked_type, ''),
			COALESCE(bike_path_blocked_type, '')
		FROM construction_impact_details
		WHERE permit_id = ANY($1)
	`

	queryTaxiStandsNear = `
		SELECT
			taxi_stand_id,
			COALESCE(status, ''),
			COALESCE(operation_hours, ''),
			latitude,
			longitude,
			COALESCE(num_places, 0),
			COALESCE(name, ''),
			COALESCE(type, '')
		FROM taxi_stands
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
	`
)
