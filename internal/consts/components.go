package consts

// Component names for the import service.
const (
	COMP_DAO_FILE_TYPE     = "file_type_dao"
	COMP_DAO_STOCK_CONCEPT = "stock_concept_dao"
	COMP_TABLE_MANAGER     = "table_manager"
	COMP_MAPPING_GENERATOR = "mapping_generator"

	COMP_SVC_CONCEPT_RESOLVER = "concept_resolver"
	COMP_SVC_IMPORT_LOCKER    = "import_locker"
	COMP_SVC_FILE_TYPE        = "file_type_registry"
	COMP_SVC_IMPORT           = "import_service"

	COMP_CTRL_FILE_TYPE = "file_type_ctrl"
	COMP_CTRL_IMPORT    = "import_ctrl"
	COMP_CTRL_CONCEPT   = "concept_ctrl"
)
