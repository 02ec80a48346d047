package normalize

// IdentityField is the single column identity is read from. Unlike the other
// attributes there is no fallback: a row without it cannot be attributed.
const IdentityField = "profile.identity"

// NestedItemsField optionally holds a JSON array of sub-items, each with its
// own product identifier. Present in newer cart exports.
const NestedItemsField = "eventProps.Items"

// ViewCountField carries the aggregated view count on most-viewed delta rows.
const ViewCountField = "eventProps.view_count"

// Ordered candidate column lists, first non-empty value wins. Order matters
// and must not be reshuffled: it encodes which export generation takes
// precedence when a row carries several variants.
var (
	productIDFields = []string{
		"eventProps.Product ID",
		"eventProps.Items|product_id",
		"eventProps.Items|product id",
		"eventProps.product_id",
		"eventProps.ID",
	}

	priceFields = []string{
		"eventProps.price",
		"eventProps.Price",
		"eventProps.Items|price",
		"eventProps.Items|unit_price",
	}

	titleFields = []string{
		"eventProps.item_name",
		"eventProps.Items|item_name",
		"eventProps.Items|title",
		"eventProps.Items|item_title",
		"eventProps.Title",
		"eventProps.title",
	}

	imageURLFields = []string{
		"eventProps.image_url",
		"eventProps.Image_url",
		"eventProps.Image Url",
		"eventProps.Items|image_url",
		"eventProps.Items|img_url",
	}

	emailFields = []string{
		"profile.email",
		"eventProps.email",
		"eventProps.customer email",
	}

	phoneFields = []string{
		"profile.phone",
		"eventProps.phone",
		"eventProps.customer phone",
	}
)
